package download

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tilehttp "github.com/handiism/osm-tile-downloader/internal/http"
	ioutils "github.com/handiism/osm-tile-downloader/internal/io"
	"github.com/handiism/osm-tile-downloader/internal/logger"
	"github.com/handiism/osm-tile-downloader/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aachen covers 18 tiles over zoom levels 1 to 12.
func aachen(t *testing.T) model.BoundingBox {
	t.Helper()
	bbox, err := model.NewBoundingBoxDegrees(50.811, 6.1649, 50.7492, 6.031)
	require.NoError(t, err)
	return bbox
}

type tileServer struct {
	*httptest.Server
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	fail     map[string]int
	delay    time.Duration
}

func newTileServer(t *testing.T) *tileServer {
	ts := &tileServer{fail: map[string]int{}}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		n := ts.inFlight.Add(1)
		defer ts.inFlight.Add(-1)
		for {
			seen := ts.maxSeen.Load()
			if n <= seen || ts.maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		if ts.delay > 0 {
			time.Sleep(ts.delay)
		}

		key := strings.TrimPrefix(r.URL.Path, "/")
		if code, ok := ts.fail[key]; ok {
			w.WriteHeader(code)
			return
		}
		w.Write([]byte("tile " + key))
	}))
	t.Cleanup(ts.Close)
	return ts
}

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) record(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) level(level ProgressLevel) []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ProgressEvent
	for _, e := range l.events {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

type countingTransport struct {
	calls atomic.Int32
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return nil, http.ErrHandlerTimeout
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{FetchRate: 5, OutputDir: "tiles", URL: "http://localhost/{z}/{x}/{y}", MaxZoom: 18}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"zero rate", func(c *Config) { c.FetchRate = 0 }, false},
		{"zero zoom", func(c *Config) { c.MaxZoom = 0 }, false},
		{"zoom too deep", func(c *Config) { c.MaxZoom = MaxZoomLevel + 1 }, false},
		{"deepest zoom", func(c *Config) { c.MaxZoom = MaxZoomLevel }, true},
		{"no output", func(c *Config) { c.OutputDir = "" }, false},
		{"no url", func(c *Config) { c.URL = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestNewManager_Total(t *testing.T) {
	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: t.TempDir(), URL: "http://localhost/{z}/{x}/{y}", MaxZoom: 12}

	mgr, err := NewManager(cfg)
	require.NoError(t, err)
	assert.Equal(t, 18, mgr.Total())
	assert.Equal(t, Progress{Total: 18}, mgr.Progress())
}

func TestNewManager_BadProxy(t *testing.T) {
	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: t.TempDir(), URL: "http://localhost/{z}/{x}/{y}", MaxZoom: 12}

	opts := tilehttp.DefaultOptions()
	opts.Proxy = tilehttp.ProxyOptions{Type: tilehttp.ProxyManual, Address: "proxy"}

	_, err := NewManager(cfg, WithClientOptions(opts))
	assert.Error(t, err)
}

func TestManager_Run(t *testing.T) {
	srv := newTileServer(t)
	out := filepath.Join(t.TempDir(), "tiles")
	events := &eventLog{}

	cfg := Config{BoundingBox: aachen(t), FetchRate: 4, OutputDir: out, URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg, WithProgress(events.record))
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, Progress{Completed: 18, Total: 18, Fetched: 18}, mgr.Progress())
	assert.Equal(t, int32(18), srv.calls.Load())

	data, err := os.ReadFile(filepath.Join(out, "12", "2117", "1375"))
	require.NoError(t, err)
	assert.Equal(t, "tile 12/2117/1375", string(data))

	data, err = os.ReadFile(filepath.Join(out, "1", "1", "0"))
	require.NoError(t, err)
	assert.Equal(t, "tile 1/1/0", string(data))

	assert.Len(t, events.level(LevelSuccess), 1)
	assert.Empty(t, events.level(LevelError))
}

func TestManager_RunSkipsPresentTiles(t *testing.T) {
	srv := newTileServer(t)
	out := t.TempDir()

	cfg := Config{BoundingBox: aachen(t), FetchRate: 4, OutputDir: out, URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}

	first, err := NewManager(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Run(context.Background()))
	require.Equal(t, int32(18), srv.calls.Load())

	second, err := NewManager(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Run(context.Background()))

	assert.Equal(t, int32(18), srv.calls.Load(), "present tiles must not be requested again")
	assert.Equal(t, Progress{Completed: 18, Total: 18, Skipped: 18}, second.Progress())
}

func TestManager_RunRespectsFetchRate(t *testing.T) {
	srv := newTileServer(t)
	srv.delay = 20 * time.Millisecond

	cfg := Config{BoundingBox: aachen(t), FetchRate: 3, OutputDir: t.TempDir(), URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg)
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, 18, mgr.Progress().Fetched)
	assert.LessOrEqual(t, srv.maxSeen.Load(), int32(3))
	assert.GreaterOrEqual(t, srv.maxSeen.Load(), int32(1))
}

func TestManager_RunIsolatesFailures(t *testing.T) {
	srv := newTileServer(t)
	srv.fail["12/2117/1374"] = http.StatusInternalServerError
	srv.fail["11/1058/687"] = http.StatusNotFound
	out := t.TempDir()
	events := &eventLog{}

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: out, URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg, WithProgress(events.record))
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, Progress{Completed: 18, Total: 18, Fetched: 16, Failed: 2}, mgr.Progress())

	_, err = os.Stat(filepath.Join(out, "12", "2117", "1374"))
	assert.True(t, os.IsNotExist(err), "failed tile must not be written")

	failures := events.level(LevelError)
	require.Len(t, failures, 2)
	got := map[model.Tile]bool{}
	for _, e := range failures {
		require.NotNil(t, e.Tile)
		got[*e.Tile] = true
	}
	assert.True(t, got[model.Tile{X: 2117, Y: 1374, Z: 12}])
	assert.True(t, got[model.Tile{X: 1058, Y: 687, Z: 11}])
	assert.Len(t, events.level(LevelWarning), 1)
}

func TestManager_RunIsolatesMkdirFailures(t *testing.T) {
	srv := newTileServer(t)
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "12"), []byte("not a dir"), 0644))
	events := &eventLog{}

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: out, URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg, WithProgress(events.record))
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, Progress{Completed: 18, Total: 18, Fetched: 12, Failed: 6}, mgr.Progress())
	assert.Equal(t, int32(12), srv.calls.Load(), "tiles without a directory must not be requested")

	failures := events.level(LevelError)
	require.Len(t, failures, 6)
	for _, e := range failures {
		require.NotNil(t, e.Tile)
		assert.Equal(t, uint8(12), e.Tile.Z)
		assert.Contains(t, e.Message, ": "+string(OpMkdir)+":")
	}
}

func TestManager_RunIsolatesWriteFailures(t *testing.T) {
	srv := newTileServer(t)
	out := t.TempDir()
	events := &eventLog{}
	diskFull := errors.New("no space left on device")

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: out, URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg, WithProgress(events.record))
	require.NoError(t, err)
	mgr.writeFile = func(ctx context.Context, path string, data []byte) error {
		if filepath.Dir(path) == filepath.Join(out, "12", "2117") {
			return diskFull
		}
		return ioutils.WriteFile(ctx, path, data)
	}

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, Progress{Completed: 18, Total: 18, Fetched: 16, Failed: 2}, mgr.Progress())
	assert.Equal(t, int32(18), srv.calls.Load())

	failures := events.level(LevelError)
	require.Len(t, failures, 2)
	for _, e := range failures {
		require.NotNil(t, e.Tile)
		assert.Equal(t, model.Tile{X: 2117, Y: e.Tile.Y, Z: 12}, *e.Tile)
		assert.Contains(t, e.Message, ": "+string(OpWrite)+" ")
		assert.Contains(t, e.Message, diskFull.Error())
	}
	_, err = os.Stat(filepath.Join(out, "12", "2117", "1374"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_RunReadOnlyColumn(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions do not apply to root")
	}
	srv := newTileServer(t)
	out := t.TempDir()
	column := filepath.Join(out, "12", "2117")
	require.NoError(t, os.MkdirAll(column, 0755))
	require.NoError(t, os.Chmod(column, 0555))
	t.Cleanup(func() { _ = os.Chmod(column, 0755) })

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: out, URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg)
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, Progress{Completed: 18, Total: 18, Fetched: 16, Failed: 2}, mgr.Progress())
	entries, err := os.ReadDir(column)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_RunUntrustedURL(t *testing.T) {
	transport := &countingTransport{}
	opts := tilehttp.DefaultOptions()
	opts.Transport = transport
	events := &eventLog{}

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: t.TempDir(), URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png", MaxZoom: 3}
	mgr, err := NewManager(cfg, WithClientOptions(opts), WithProgress(events.record))
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))

	assert.Equal(t, int32(0), transport.calls.Load())
	assert.Equal(t, Progress{Completed: 3, Total: 3, Failed: 3}, mgr.Progress())
	for _, e := range events.level(LevelError) {
		assert.Contains(t, e.Message, string(OpPolicy))
	}
}

func TestManager_RunLogsEveryFailure(t *testing.T) {
	transport := &countingTransport{}
	opts := tilehttp.DefaultOptions()
	opts.Transport = transport

	log, buf, err := logger.NewBuffered(logger.Options{Level: "error"})
	require.NoError(t, err)

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: t.TempDir(), URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png", MaxZoom: 12}
	mgr, err := NewManager(cfg, WithClientOptions(opts), WithLogger(log))
	require.NoError(t, err)

	require.NoError(t, mgr.Run(context.Background()))
	require.Equal(t, 18, mgr.Progress().Failed)

	var out bytes.Buffer
	require.NoError(t, buf.Flush(&out))

	seen := map[model.Tile]bool{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var entry struct {
			Msg   string `json:"msg"`
			Z     uint8  `json:"z"`
			X     int    `json:"x"`
			Y     int    `json:"y"`
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.Equal(t, "tile failed", entry.Msg)
		assert.Contains(t, entry.Error, string(OpPolicy))
		seen[model.Tile{X: entry.X, Y: entry.Y, Z: entry.Z}] = true
	}
	assert.Len(t, seen, 18)
	assert.True(t, seen[model.Tile{X: 2118, Y: 1375, Z: 12}])
}

func TestManager_RunOutputNotDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tiles")
	require.NoError(t, os.WriteFile(out, []byte("not a dir"), 0644))

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: out, URL: "http://localhost/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg)
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.Run(context.Background()), ErrOutputNotDirectory)
	assert.Equal(t, 0, mgr.Progress().Completed)
}

func TestManager_RunCancelled(t *testing.T) {
	srv := newTileServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{BoundingBox: aachen(t), FetchRate: 5, OutputDir: t.TempDir(), URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 12}
	mgr, err := NewManager(cfg)
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.Run(ctx), context.Canceled)
	assert.Equal(t, int32(0), srv.calls.Load())
}

func TestTileError(t *testing.T) {
	err := &TileError{Tile: model.Tile{X: 1, Y: 2, Z: 3}, Op: OpFetch, URL: "http://localhost/3/1/2", Err: tilehttp.ErrUnexpectedStatus}

	assert.Equal(t, "tile 3/1/2: fetch http://localhost/3/1/2: http: unexpected status code", err.Error())
	assert.ErrorIs(t, err, tilehttp.ErrUnexpectedStatus)
}
