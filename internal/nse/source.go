package nse

import (
	"context"

	"stockflow/internal/types"
)

// CachingSource wraps a Client with the symbol directory: company names seen
// on the feed are recorded, and announcements the feed ships without one get
// the cached name filled in.
type CachingSource struct {
	client *Client
	dir    *Directory
}

func NewCachingSource(client *Client, dir *Directory) *CachingSource {
	return &CachingSource{client: client, dir: dir}
}

func (s *CachingSource) Fetch(ctx context.Context) []types.Announcement {
	anns := s.client.Fetch(ctx)

	dirty := false
	for i := range anns {
		if anns[i].Symbol == "" {
			continue
		}
		if anns[i].CompanyName != "" {
			if s.dir.Put(anns[i].Symbol, anns[i].CompanyName) {
				dirty = true
			}
		} else {
			anns[i].CompanyName = s.dir.CompanyName(anns[i].Symbol)
		}
	}
	if dirty {
		if err := s.dir.Save(); err != nil {
			s.client.log.Warn().Err(err).Msg("persisting symbol directory failed")
		}
	}
	return anns
}
