package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	tabs map[string]int64

	listCalls         int
	addCalls          int
	formatCalls       int
	headerWriteCalls  int
	dataWriteCalls    int
	clearCalls        int
	addErr            error
	clearFailuresLeft int
	clearErr          error
}

func newMockAPI(existing ...string) *mockAPI {
	tabs := make(map[string]int64)
	for i, tab := range existing {
		tabs[tab] = int64(i + 1)
	}
	return &mockAPI{tabs: tabs}
}

func (m *mockAPI) SheetIDs(context.Context) (map[string]int64, error) {
	m.listCalls++
	ids := make(map[string]int64, len(m.tabs))
	for k, v := range m.tabs {
		ids[k] = v
	}
	return ids, nil
}

func (m *mockAPI) AddSheet(_ context.Context, title string) error {
	m.addCalls++
	// An erroring AddSheet still registers the tab, mimicking a concurrent
	// exporter winning the creation race.
	m.tabs[title] = int64(len(m.tabs) + 1)
	if m.addErr != nil {
		return m.addErr
	}
	return nil
}

func (m *mockAPI) UpdateValues(_ context.Context, a1Range string, values [][]interface{}) error {
	if strings.HasSuffix(a1Range, "!A1") {
		m.headerWriteCalls++
	} else {
		m.dataWriteCalls++
	}
	return nil
}

func (m *mockAPI) ClearValues(context.Context, string) error {
	m.clearCalls++
	if m.clearFailuresLeft > 0 {
		m.clearFailuresLeft--
		return m.clearErr
	}
	return nil
}

func (m *mockAPI) FormatHeader(context.Context, int64, int64) error {
	m.formatCalls++
	return nil
}

func newTestWriter(api API) *Writer {
	w := NewWriter(api, NewTabCache(), nil)
	w.sleep = func(time.Duration) {}
	return w
}

func TestWriterCreatesMissingTab(t *testing.T) {
	api := newMockAPI()
	w := newTestWriter(api)

	count, err := w.Replace(context.Background(), "Berlangganan", []string{"ID", "Status"}, [][]interface{}{{"e1", "lunas"}})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, api.addCalls)
	assert.Equal(t, 1, api.headerWriteCalls)
	assert.Equal(t, 1, api.formatCalls)
	assert.Equal(t, 1, api.clearCalls)
	assert.Equal(t, 1, api.dataWriteCalls)
}

func TestWriterHeaderWrittenOncePerProcess(t *testing.T) {
	api := newMockAPI("Participants")
	w := newTestWriter(api)
	headers := []string{"ID", "Nama", "Email", "Telepon", "Alamat", "Tanggal Lahir", "Tanggal Daftar", "Status"}

	for i := 0; i < 2; i++ {
		_, err := w.Replace(context.Background(), "Participants", headers, [][]interface{}{{"p1"}})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, api.headerWriteCalls, "header row is written once per process lifetime")
	assert.Equal(t, 1, api.formatCalls)
	assert.Equal(t, 2, api.clearCalls, "data rows are cleared on every export")
	assert.Equal(t, 2, api.dataWriteCalls)
}

func TestWriterSkipsListingForKnownTab(t *testing.T) {
	api := newMockAPI("Participants")
	w := newTestWriter(api)

	for i := 0; i < 3; i++ {
		_, err := w.Replace(context.Background(), "Participants", []string{"ID"}, [][]interface{}{{"p1"}})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, api.listCalls, "tab existence is resolved once and cached")
	assert.Equal(t, 0, api.addCalls)
}

func TestWriterToleratesAlreadyExistsRace(t *testing.T) {
	api := newMockAPI()
	api.addErr = errors.New(`a sheet with the name "Absensi" already exists`)
	w := newTestWriter(api)

	count, err := w.Replace(context.Background(), "Absensi", []string{"ID"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 1, api.headerWriteCalls)
}

func TestWriterSkipsDataWriteForEmptyRows(t *testing.T) {
	api := newMockAPI("Instructors")
	w := newTestWriter(api)

	count, err := w.Replace(context.Background(), "Instructors", []string{"ID", "Nama"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 1, api.clearCalls)
	assert.Equal(t, 0, api.dataWriteCalls)
}

func TestWriterRetriesThenSurfacesLastError(t *testing.T) {
	api := newMockAPI("Berlangganan")
	api.clearErr = fmt.Errorf("rate limit exceeded")
	api.clearFailuresLeft = 99
	w := newTestWriter(api)

	var delays []time.Duration
	w.sleep = func(d time.Duration) { delays = append(delays, d) }

	_, err := w.Replace(context.Background(), "Berlangganan", []string{"ID"}, [][]interface{}{{"x"}})
	require.Error(t, err)
	assert.Equal(t, api.clearErr, err, "last failure is surfaced verbatim")
	assert.Equal(t, 3, api.clearCalls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, delays, "linear backoff between attempts")
}

func TestWriterRecoversWithinRetryBudget(t *testing.T) {
	api := newMockAPI("Berlangganan")
	api.clearErr = fmt.Errorf("transient")
	api.clearFailuresLeft = 2
	w := newTestWriter(api)

	count, err := w.Replace(context.Background(), "Berlangganan", []string{"ID"}, [][]interface{}{{"x"}})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 3, api.clearCalls)
}

func TestTabCacheReset(t *testing.T) {
	cache := NewTabCache()
	cache.MarkKnown("Absensi", 7)
	cache.MarkHeaderReady("Absensi")
	id, ok := cache.Known("Absensi")
	require.True(t, ok)
	require.Equal(t, int64(7), id)
	require.True(t, cache.HeaderReady("Absensi"))

	cache.Reset()
	_, ok = cache.Known("Absensi")
	assert.False(t, ok)
	assert.False(t, cache.HeaderReady("Absensi"))
}
