// -----------------------------------------------------------------------
// Announcement severity classification.
// Pure functions: case-insensitive keyword matching, no I/O.
// -----------------------------------------------------------------------

package classify

import (
	"strings"

	"stockflow/internal/types"
)

// Keyword sets are checked in priority order: a text matching both a
// critical and an important keyword is CRITICAL. Severity false positives
// are preferred over false negatives.
var criticalKeywords = []string{
	"resignation", "director", "ceo", "cfo", "auditor",
	"fraud", "investigation", "penalty", "litigation",
	"default", "suspension", "sebi", "regulatory action",
}

var importantKeywords = []string{
	"board meeting", "agm", "egm", "dividend", "buyback",
	"acquisition", "merger", "financial results", "q1", "q2", "q3", "q4",
}

// Classify maps announcement text to a severity tier.
func Classify(text string) types.Tier {
	lower := strings.ToLower(text)

	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return types.TierCritical
		}
	}
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			return types.TierImportant
		}
	}
	return types.TierRoutine
}

// contextHints maps a keyword to the static hint appended to IMPORTANT
// alerts. Order matters: the first matching keyword wins.
var contextHints = []struct {
	keyword string
	hint    string
}{
	{"board meeting", "📅 Board meeting scheduled. May discuss financials, dividends, or strategic decisions."},
	{"dividend", "💰 Dividend announcement. Positive signal for shareholder returns."},
	{"agm", "👥 Annual General Meeting. Review company performance and vote on resolutions."},
	{"results", "📊 Financial results released. Check revenue, profit, and guidance."},
	{"acquisition", "🤝 M&A activity. Potential growth opportunity or strategic expansion."},
	{"buyback", "💵 Share buyback announced. Company confidence signal."},
}

const defaultHint = "📢 Corporate announcement filed with exchange."

// ContextHint returns the static context line for an IMPORTANT announcement.
func ContextHint(text string) string {
	lower := strings.ToLower(text)
	for _, c := range contextHints {
		if strings.Contains(lower, c.keyword) {
			return c.hint
		}
	}
	return defaultHint
}
