package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TabCache remembers which tabs exist and which already carry a formatted
// header row. It is valid for the lifetime of the process: a tab renamed or
// deleted externally desyncs the cache until restart, which is acceptable
// because the target tabs are effectively static configuration. Tests reset
// it between cases.
type TabCache struct {
	mu          sync.Mutex
	known       map[string]int64
	headerReady map[string]struct{}
}

// NewTabCache constructs an empty cache.
func NewTabCache() *TabCache {
	return &TabCache{
		known:       make(map[string]int64),
		headerReady: make(map[string]struct{}),
	}
}

// Known returns the recorded sheet ID for a tab that is known to exist.
func (c *TabCache) Known(tab string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.known[tab]
	return id, ok
}

// MarkKnown records a tab as existing under the given sheet ID.
func (c *TabCache) MarkKnown(tab string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[tab] = id
}

// HeaderReady reports whether the tab's header row has been written and
// formatted during this process lifetime.
func (c *TabCache) HeaderReady(tab string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.headerReady[tab]
	return ok
}

// MarkHeaderReady records the header row as written.
func (c *TabCache) MarkHeaderReady(tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headerReady[tab] = struct{}{}
}

// Reset clears all cached state.
func (c *TabCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = make(map[string]int64)
	c.headerReady = make(map[string]struct{})
}

// Writer publishes tabular data to spreadsheet tabs, replacing all previously
// published rows on every call. Remote calls are retried up to three times
// with linear backoff; the last failure is surfaced verbatim.
type Writer struct {
	api     API
	cache   *TabCache
	logger  *zap.Logger
	sleep   func(time.Duration)
	retries int
	backoff time.Duration
}

// NewWriter constructs a Writer.
func NewWriter(api API, cache *TabCache, logger *zap.Logger) *Writer {
	if cache == nil {
		cache = NewTabCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		api:     api,
		cache:   cache,
		logger:  logger,
		sleep:   time.Sleep,
		retries: 3,
		backoff: 200 * time.Millisecond,
	}
}

// Replace publishes rows to the named tab: it ensures the tab and its header
// exist, clears all data rows, then writes the new rows starting at row 2.
// It returns the number of data rows written.
func (w *Writer) Replace(ctx context.Context, tab string, headers []string, rows [][]interface{}) (int, error) {
	sheetID, err := w.ensureTab(ctx, tab)
	if err != nil {
		return 0, err
	}

	if err := w.ensureHeader(ctx, tab, sheetID, headers); err != nil {
		return 0, err
	}

	clearRange := fmt.Sprintf("%s!A2:Z", tab)
	if err := w.withRetry("clear:"+tab, func() error {
		return w.api.ClearValues(ctx, clearRange)
	}); err != nil {
		return 0, err
	}

	if len(rows) > 0 {
		if err := w.withRetry("write:"+tab, func() error {
			return w.api.UpdateValues(ctx, fmt.Sprintf("%s!A2", tab), rows)
		}); err != nil {
			return 0, err
		}
	}

	return len(rows), nil
}

// ensureTab guarantees the tab exists, creating it when absent, and returns
// its sheet ID. Tabs seen earlier in the process skip the listing round-trip.
// A concurrent creation reporting "already exists" counts as success.
func (w *Writer) ensureTab(ctx context.Context, tab string) (int64, error) {
	if id, ok := w.cache.Known(tab); ok {
		return id, nil
	}

	ids, err := w.sheetIDs(ctx, tab)
	if err != nil {
		return 0, err
	}

	if id, ok := ids[tab]; ok {
		w.cache.MarkKnown(tab, id)
		return id, nil
	}

	if err := w.withRetry("addSheet:"+tab, func() error {
		return w.api.AddSheet(ctx, tab)
	}); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return 0, err
		}
	}

	ids, err = w.sheetIDs(ctx, tab)
	if err != nil {
		return 0, err
	}
	w.cache.MarkKnown(tab, ids[tab])
	return ids[tab], nil
}

func (w *Writer) ensureHeader(ctx context.Context, tab string, sheetID int64, headers []string) error {
	if w.cache.HeaderReady(tab) {
		return nil
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := w.withRetry("writeHeader:"+tab, func() error {
		return w.api.UpdateValues(ctx, fmt.Sprintf("%s!A1", tab), [][]interface{}{row})
	}); err != nil {
		return err
	}

	if err := w.withRetry("formatHeader:"+tab, func() error {
		return w.api.FormatHeader(ctx, sheetID, int64(len(headers)))
	}); err != nil {
		return err
	}

	w.cache.MarkHeaderReady(tab)
	return nil
}

func (w *Writer) sheetIDs(ctx context.Context, tab string) (map[string]int64, error) {
	var ids map[string]int64
	err := w.withRetry("listSheets:"+tab, func() error {
		var inner error
		ids, inner = w.api.SheetIDs(ctx)
		return inner
	})
	return ids, err
}

func (w *Writer) withRetry(label string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= w.retries; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if attempt < w.retries {
				w.sleep(time.Duration(attempt) * w.backoff)
			}
			continue
		}
		return nil
	}
	w.logger.Warn("sheets call failed after retries", zap.String("op", label), zap.Error(lastErr))
	return lastErr
}
