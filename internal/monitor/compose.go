package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stockflow/internal/classify"
	"stockflow/internal/types"
)

// Summarizer produces an AI summary of announcement text. Implemented by
// ai.Gemini; errors trigger the templated fallback.
type Summarizer interface {
	Summarize(ctx context.Context, text, symbol, companyName string) (string, error)
}

// Extractor pulls a text snippet out of an announcement attachment.
type Extractor interface {
	Snippet(ctx context.Context, url string) (string, error)
}

// Composer builds the notification body for an announcement. Only the
// CRITICAL path performs network calls (attachment fetch, AI summary);
// ROUTINE and IMPORTANT are pure templates.
type Composer struct {
	summarizer Summarizer
	extractor  Extractor
	now        func() time.Time
	log        zerolog.Logger
}

func NewComposer(summarizer Summarizer, extractor Extractor, log zerolog.Logger) *Composer {
	return &Composer{
		summarizer: summarizer,
		extractor:  extractor,
		now:        time.Now,
		log:        log.With().Str("component", "compose").Logger(),
	}
}

// Compose renders the tier-appropriate message. It never fails: every error
// on the CRITICAL path degrades to a templated body.
func (c *Composer) Compose(ctx context.Context, ann types.Announcement, tier types.Tier) string {
	switch tier {
	case types.TierCritical:
		return c.critical(ctx, ann)
	case types.TierImportant:
		return c.important(ann)
	default:
		return c.routine(ann)
	}
}

func (c *Composer) routine(ann types.Announcement) string {
	return fmt.Sprintf(`🔔 *%s Update*

📋 %s

🏢 %s
🕐 %s

_Routine disclosure - No immediate action required_`,
		ann.Symbol, ann.Desc, c.companyOrDefault(ann), c.dateOrNow(ann))
}

func (c *Composer) important(ann types.Announcement) string {
	return fmt.Sprintf(`⚡ *%s - Important Update*

📋 %s

%s

🏢 %s
🕐 %s

_Review recommended_`,
		ann.Symbol, ann.Desc, classify.ContextHint(ann.Desc), c.companyOrDefault(ann), c.dateOrNow(ann))
}

func (c *Composer) critical(ctx context.Context, ann types.Announcement) string {
	return fmt.Sprintf(`🚨 *%s - CRITICAL ALERT*

📋 %s

🤖 *Quick Analysis:*
%s

🏢 %s
🕐 %s

_⚠️ Immediate attention recommended_`,
		ann.Symbol, ann.Desc, c.insight(ctx, ann), c.companyOrDefault(ann), c.dateOrNow(ann))
}

// insight tries attachment text first, then the bare description, and falls
// back to a fixed sentence. A CRITICAL alert is never blocked or dropped
// because a provider call failed.
func (c *Composer) insight(ctx context.Context, ann types.Announcement) string {
	company := c.companyOrDefault(ann)

	text := ann.Desc
	if ann.AttachmentURL != "" && c.extractor != nil {
		snippet, err := c.extractor.Snippet(ctx, ann.AttachmentURL)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", ann.Symbol).Msg("attachment extraction failed, summarizing description only")
		} else {
			text = ann.Desc + "\n\n" + snippet
		}
	}

	if c.summarizer == nil {
		return fallbackInsight(company, ann.Symbol)
	}

	summary, err := c.summarizer.Summarize(ctx, text, ann.Symbol, company)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", ann.Symbol).Msg("AI summary failed, using fallback")
		return fallbackInsight(company, ann.Symbol)
	}
	return summary
}

func fallbackInsight(companyName, symbol string) string {
	return fmt.Sprintf("New announcement for %s (%s). Check the latest update on NSE.", companyName, symbol)
}

func (c *Composer) companyOrDefault(ann types.Announcement) string {
	if ann.CompanyName != "" {
		return ann.CompanyName
	}
	return "NSE"
}

func (c *Composer) dateOrNow(ann types.Announcement) string {
	if ann.Date != "" {
		return ann.Date
	}
	return c.now().Format("02 Jan 2006")
}
