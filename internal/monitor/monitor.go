package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"stockflow/internal/classify"
	"stockflow/internal/store"
	"stockflow/internal/types"
)

// Source produces the latest announcement batch. Implemented by nse.Client.
type Source interface {
	Fetch(ctx context.Context) []types.Announcement
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	LoadSeen(ctx context.Context) (map[int64]struct{}, error)
	MarkProcessed(ctx context.Context, seqID int64, symbol string) error
	WatchersFor(ctx context.Context, symbol string) ([]types.Watcher, error)
	LogAlert(ctx context.Context, rec store.AlertRecord) error
}

// Deliverer fans a composed message out to a single watcher.
type Deliverer interface {
	Deliver(ctx context.Context, w types.Watcher, symbol, message string) types.DeliveryResult
}

// Service runs the announcement check cycle: fetch, dedup against the
// seen-set, classify, compose, deliver, record. Announcements are marked
// processed only after their delivery attempts, so a crash mid-cycle
// re-delivers rather than drops.
type Service struct {
	source   Source
	store    Store
	composer *Composer
	router   Deliverer
	log      zerolog.Logger

	inFlight atomic.Bool
	cycleSeq atomic.Uint64
}

func New(source Source, st Store, composer *Composer, router Deliverer, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		store:    st,
		composer: composer,
		router:   router,
		log:      log.With().Str("component", "monitor").Logger(),
	}
}

// CheckAndNotify runs one full cycle. It is safe to call concurrently;
// overlapping cycles stay correct because the seen-set is reloaded per cycle
// and marking is an idempotent upsert.
func (s *Service) CheckAndNotify(ctx context.Context) {
	cycle := s.cycleSeq.Add(1)
	log := s.log.With().Uint64("cycle", cycle).Logger()
	start := time.Now()
	log.Info().Msg("starting announcement check")

	seen, err := s.store.LoadSeen(ctx)
	if err != nil {
		// Fail open: a broken read must not silence alerts. The worst
		// case is a duplicate notification, which the idempotent mark
		// bounds to one extra per announcement.
		log.Error().Err(err).Msg("loading seen announcements failed, treating all as new")
		seen = map[int64]struct{}{}
	}

	anns := s.source.Fetch(ctx)
	fresh := 0
	for _, ann := range anns {
		if _, ok := seen[ann.SeqID]; ok {
			continue
		}
		seen[ann.SeqID] = struct{}{}
		fresh++
		s.process(ctx, log, ann)
	}

	log.Info().
		Int("fetched", len(anns)).
		Int("new", fresh).
		Dur("elapsed", time.Since(start)).
		Msg("announcement check complete")
}

func (s *Service) process(ctx context.Context, log zerolog.Logger, ann types.Announcement) {
	if ann.Symbol == "" {
		log.Debug().Int64("seq_id", ann.SeqID).Msg("skipping announcement without symbol")
		return
	}

	alog := log.With().Int64("seq_id", ann.SeqID).Str("symbol", ann.Symbol).Logger()

	watchers, err := s.store.WatchersFor(ctx, ann.Symbol)
	if err != nil {
		// Leave unmarked so the next cycle retries the lookup.
		alog.Error().Err(err).Msg("watcher lookup failed")
		return
	}

	if len(watchers) == 0 {
		alog.Debug().Msg("no watchers, marking processed")
		s.mark(ctx, alog, ann)
		return
	}

	tier := classify.Classify(ann.Desc)
	message := s.composer.Compose(ctx, ann, tier)
	alog.Info().
		Str("tier", string(tier)).
		Int("watchers", len(watchers)).
		Msg("delivering announcement")

	for _, w := range watchers {
		res := s.router.Deliver(ctx, w, ann.Symbol, message)
		if !res.OK {
			alog.Warn().
				Int64("user_id", w.UserID).
				Str("channel", string(w.Channel)).
				Str("error", res.Err).
				Msg("delivery failed")
		}
		rec := store.AlertRecord{
			UserID:    w.UserID,
			Symbol:    ann.Symbol,
			NewsTitle: ann.Desc,
			Message:   message,
			NewsSeqID: ann.SeqID,
			Sent:      res.OK,
			At:        time.Now(),
		}
		if err := s.store.LogAlert(ctx, rec); err != nil {
			alog.Error().Err(err).Int64("user_id", w.UserID).Msg("recording alert failed")
		}
	}

	s.mark(ctx, alog, ann)
}

func (s *Service) mark(ctx context.Context, log zerolog.Logger, ann types.Announcement) {
	if err := s.store.MarkProcessed(ctx, ann.SeqID, ann.Symbol); err != nil {
		log.Error().Err(err).Msg("marking announcement processed failed")
	}
}

// RunScheduled is the entry point for timer ticks. It skips the tick when a
// previous cycle is still running; manual triggers call CheckAndNotify
// directly and are never skipped.
func (s *Service) RunScheduled(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Warn().Msg("previous check still running, skipping scheduled tick")
		return
	}
	defer s.inFlight.Store(false)
	s.CheckAndNotify(ctx)
}
