package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/store"
	"stockflow/internal/types"
)

type fakeSource struct {
	batch []types.Announcement
}

func (f *fakeSource) Fetch(ctx context.Context) []types.Announcement {
	return f.batch
}

type fakeStore struct {
	mu       sync.Mutex
	seen     map[int64]struct{}
	watchers map[string][]types.Watcher
	alerts   []store.AlertRecord
	loadErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seen:     map[int64]struct{}{},
		watchers: map[string][]types.Watcher{},
	}
}

func (f *fakeStore) LoadSeen(ctx context.Context) (map[int64]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make(map[int64]struct{}, len(f.seen))
	for k := range f.seen {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) MarkProcessed(ctx context.Context, seqID int64, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[seqID] = struct{}{}
	return nil
}

func (f *fakeStore) WatchersFor(ctx context.Context, symbol string) ([]types.Watcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watchers[symbol], nil
}

func (f *fakeStore) LogAlert(ctx context.Context, rec store.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, rec)
	return nil
}

func (f *fakeStore) marked(seqID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[seqID]
	return ok
}

type recordedDelivery struct {
	watcher types.Watcher
	message string
}

type fakeRouter struct {
	mu         sync.Mutex
	deliveries []recordedDelivery
	failFor    map[int64]string // user ID -> error text
}

func (f *fakeRouter) Deliver(ctx context.Context, w types.Watcher, symbol, message string) types.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, recordedDelivery{watcher: w, message: message})
	if msg, ok := f.failFor[w.UserID]; ok {
		return types.DeliveryResult{Err: msg}
	}
	return types.DeliveryResult{OK: true}
}

func (f *fakeRouter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

type fakeSummarizer struct {
	summary  string
	err      error
	calls    int
	lastText string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text, symbol, companyName string) (string, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeExtractor struct {
	snippet string
	err     error
	calls   int
}

func (f *fakeExtractor) Snippet(ctx context.Context, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.snippet, nil
}

func testService(src Source, st *fakeStore, router *fakeRouter, sum Summarizer) *Service {
	composer := NewComposer(sum, nil, zerolog.Nop())
	return New(src, st, composer, router, zerolog.Nop())
}

func telegramWatcher(userID, chatID int64, symbol string) types.Watcher {
	return types.Watcher{
		UserID:         userID,
		Symbol:         symbol,
		Channel:        types.ChannelTelegram,
		TelegramChatID: chatID,
	}
}

func TestDividendAnnouncementFlow(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID:       501,
		Symbol:      "TCS",
		Desc:        "Board approves interim dividend of Rs 10 per share",
		CompanyName: "Tata Consultancy Services",
		Date:        "29-Aug-2026 10:15:00",
	}}}
	st := newFakeStore()
	st.watchers["TCS"] = []types.Watcher{telegramWatcher(1, 100, "TCS")}
	router := &fakeRouter{}

	svc := testService(src, st, router, nil)
	svc.CheckAndNotify(context.Background())

	require.Equal(t, 1, router.count())
	msg := router.deliveries[0].message
	assert.Contains(t, msg, "TCS - Important Update")
	assert.Contains(t, msg, "Dividend announcement")
	assert.Contains(t, msg, "Tata Consultancy Services")

	require.Len(t, st.alerts, 1)
	assert.True(t, st.alerts[0].Sent)
	assert.EqualValues(t, 501, st.alerts[0].NewsSeqID)
	assert.True(t, st.marked(501))
}

func TestSecondCycleDeliversNothing(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID: 601, Symbol: "INFY", Desc: "Routine filing",
	}}}
	st := newFakeStore()
	st.watchers["INFY"] = []types.Watcher{telegramWatcher(1, 100, "INFY")}
	router := &fakeRouter{}

	svc := testService(src, st, router, nil)
	svc.CheckAndNotify(context.Background())
	svc.CheckAndNotify(context.Background())

	assert.Equal(t, 1, router.count())
	assert.Len(t, st.alerts, 1)
}

func TestDuplicateSeqIDWithinBatchDeliveredOnce(t *testing.T) {
	ann := types.Announcement{SeqID: 602, Symbol: "INFY", Desc: "Routine filing"}
	src := &fakeSource{batch: []types.Announcement{ann, ann}}
	st := newFakeStore()
	st.watchers["INFY"] = []types.Watcher{telegramWatcher(1, 100, "INFY")}
	router := &fakeRouter{}

	testService(src, st, router, nil).CheckAndNotify(context.Background())

	assert.Equal(t, 1, router.count())
}

func TestNoWatchersStillMarksProcessed(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID:  701,
		Symbol: "OBSCURE",
		Desc:   "Fraud investigation by SEBI", // would be CRITICAL if anyone watched
	}}}
	st := newFakeStore()
	router := &fakeRouter{}
	sum := &fakeSummarizer{summary: "should not be called"}

	testService(src, st, router, sum).CheckAndNotify(context.Background())

	assert.True(t, st.marked(701))
	assert.Zero(t, router.count())
	assert.Zero(t, sum.calls, "no compose work without watchers")
	assert.Empty(t, st.alerts)
}

func TestBlankSymbolSkipped(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{SeqID: 702, Desc: "orphan row"}}}
	st := newFakeStore()
	router := &fakeRouter{}

	testService(src, st, router, nil).CheckAndNotify(context.Background())

	assert.Zero(t, router.count())
	assert.False(t, st.marked(702))
}

func TestCriticalFallbackWhenSummaryFails(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID:       801,
		Symbol:      "ZEEL",
		Desc:        "SEBI investigation into promoter dealings",
		CompanyName: "Zee Entertainment",
	}}}
	st := newFakeStore()
	st.watchers["ZEEL"] = []types.Watcher{telegramWatcher(1, 100, "ZEEL")}
	router := &fakeRouter{}
	sum := &fakeSummarizer{err: errors.New("quota exceeded")}

	testService(src, st, router, sum).CheckAndNotify(context.Background())

	require.Equal(t, 1, router.count())
	msg := router.deliveries[0].message
	assert.Contains(t, msg, "CRITICAL ALERT")
	assert.Contains(t, msg, "New announcement for Zee Entertainment (ZEEL)")
	assert.Contains(t, msg, "Check the latest update on NSE")
	assert.True(t, st.marked(801))
}

func TestCriticalUsesSummaryWhenAvailable(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID: 802, Symbol: "ZEEL", Desc: "CFO resignation effective immediately",
	}}}
	st := newFakeStore()
	st.watchers["ZEEL"] = []types.Watcher{telegramWatcher(1, 100, "ZEEL")}
	router := &fakeRouter{}
	sum := &fakeSummarizer{summary: "• CFO departs\n• Interim successor named\n• Audit continuity assured"}

	testService(src, st, router, sum).CheckAndNotify(context.Background())

	require.Equal(t, 1, router.count())
	assert.Contains(t, router.deliveries[0].message, "CFO departs")
	assert.Equal(t, 1, sum.calls)
}

func TestOneFailedDeliveryDoesNotBlockOthers(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID: 901, Symbol: "TCS", Desc: "Dividend declared",
	}}}
	st := newFakeStore()
	st.watchers["TCS"] = []types.Watcher{
		telegramWatcher(1, 100, "TCS"),
		telegramWatcher(2, 200, "TCS"),
		telegramWatcher(3, 300, "TCS"),
	}
	router := &fakeRouter{failFor: map[int64]string{2: "chat not found"}}

	testService(src, st, router, nil).CheckAndNotify(context.Background())

	assert.Equal(t, 3, router.count())
	require.Len(t, st.alerts, 3)

	sent := 0
	for _, rec := range st.alerts {
		if rec.Sent {
			sent++
		} else {
			assert.EqualValues(t, 2, rec.UserID)
		}
	}
	assert.Equal(t, 2, sent)
	assert.True(t, st.marked(901))
}

func TestSeenLoadFailureFailsOpen(t *testing.T) {
	src := &fakeSource{batch: []types.Announcement{{
		SeqID: 1001, Symbol: "INFY", Desc: "Routine filing",
	}}}
	st := newFakeStore()
	st.loadErr = errors.New("disk corrupt")
	st.watchers["INFY"] = []types.Watcher{telegramWatcher(1, 100, "INFY")}
	router := &fakeRouter{}

	testService(src, st, router, nil).CheckAndNotify(context.Background())

	assert.Equal(t, 1, router.count(), "alerts still go out when dedup state is unreadable")
}

func TestScheduledTickSkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &blockingSource{release: release, started: started}
	st := newFakeStore()
	router := &fakeRouter{}

	svc := testService(src, st, router, nil)

	done := make(chan struct{})
	go func() {
		svc.RunScheduled(context.Background())
		close(done)
	}()
	<-started

	// Overlapping tick returns immediately without a second fetch.
	svc.RunScheduled(context.Background())
	assert.Equal(t, 1, src.fetches())

	close(release)
	<-done
}

type blockingSource struct {
	mu      sync.Mutex
	n       int
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSource) Fetch(ctx context.Context) []types.Announcement {
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func (b *blockingSource) fetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func TestCriticalAppendsAttachmentSnippet(t *testing.T) {
	sum := &fakeSummarizer{summary: "• Penalty imposed"}
	ext := &fakeExtractor{snippet: "page one text"}
	c := NewComposer(sum, ext, zerolog.Nop())

	msg := c.Compose(context.Background(), types.Announcement{
		Symbol:        "ZEEL",
		Desc:          "SEBI investigation",
		AttachmentURL: "https://nsearchives.example/doc.pdf",
	}, types.TierCritical)

	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, "SEBI investigation\n\npage one text", sum.lastText)
	assert.Contains(t, msg, "Penalty imposed")
}

// An unreadable attachment degrades to summarizing the bare description,
// not to the fallback sentence.
func TestCriticalExtractionFailureSummarizesDescription(t *testing.T) {
	sum := &fakeSummarizer{summary: "• Investigation opened"}
	ext := &fakeExtractor{err: errors.New("scanned image only")}
	c := NewComposer(sum, ext, zerolog.Nop())

	msg := c.Compose(context.Background(), types.Announcement{
		Symbol:        "ZEEL",
		Desc:          "SEBI investigation",
		AttachmentURL: "https://nsearchives.example/doc.pdf",
	}, types.TierCritical)

	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, "SEBI investigation", sum.lastText)
	assert.Contains(t, msg, "Investigation opened")
}

func TestCriticalWithoutAttachmentSkipsExtractor(t *testing.T) {
	sum := &fakeSummarizer{summary: "• Summary"}
	ext := &fakeExtractor{snippet: "unused"}
	c := NewComposer(sum, ext, zerolog.Nop())

	c.Compose(context.Background(), types.Announcement{
		Symbol: "ZEEL",
		Desc:   "SEBI investigation",
	}, types.TierCritical)

	assert.Zero(t, ext.calls)
	assert.Equal(t, "SEBI investigation", sum.lastText)
}

func TestComposerRoutineTemplate(t *testing.T) {
	c := NewComposer(nil, nil, zerolog.Nop())
	msg := c.Compose(context.Background(), types.Announcement{
		Symbol: "WIPRO",
		Desc:   "Change of registered office address",
	}, types.TierRoutine)

	assert.Contains(t, msg, "WIPRO Update")
	assert.Contains(t, msg, "No immediate action required")
	assert.Contains(t, msg, "NSE") // company fallback
	assert.False(t, strings.Contains(msg, "CRITICAL"))
}
