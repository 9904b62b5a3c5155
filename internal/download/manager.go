package download

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/handiism/osm-tile-downloader/internal/http"
	ioutils "github.com/handiism/osm-tile-downloader/internal/io"
	"github.com/handiism/osm-tile-downloader/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// Tile is set for per-tile events.
	Tile *model.Tile
}

// Progress is a snapshot of a run's counters.
type Progress struct {
	// Completed counts tiles that finished in any way.
	Completed int
	// Total is the number of tiles in the run, known before it starts.
	Total   int
	Fetched int
	Skipped int
	Failed  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for per-tile failures and run summaries.
// The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithProgress registers a callback for progress events. The callback is
// invoked from worker goroutines and must be safe for concurrent use.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(m *Manager) {
		m.onProgress = fn
	}
}

// WithClientOptions sets the options of the shared HTTP client.
// Default: http.DefaultOptions()
func WithClientOptions(opts http.Options) Option {
	return func(m *Manager) {
		m.clientOpts = opts
	}
}

// Manager fetches every tile of a Config into its output directory.
//
// At most Config.FetchRate tiles are in flight at once. A tile that fails is
// logged and counted but never stops the run; a tile already present on disk
// is skipped without any network activity.
//
// Example usage:
//
//	mgr, err := download.NewManager(cfg, download.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	if err := mgr.Run(ctx); err != nil {
//	    return err
//	}
//	p := mgr.Progress()
//	fmt.Printf("%d fetched, %d skipped, %d failed\n", p.Fetched, p.Skipped, p.Failed)
type Manager struct {
	cfg        Config
	clientOpts http.Options
	httpClient *http.Client
	log        *zap.Logger
	onProgress func(ProgressEvent)
	writeFile  func(ctx context.Context, path string, data []byte) error

	total     int
	completed atomic.Int64
	fetched   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// NewManager creates a new download Manager.
//
// Returns an error if cfg is invalid or the HTTP client cannot be built
// (a malformed proxy setting, for instance).
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:        cfg,
		clientOpts: http.DefaultOptions(),
		log:        zap.NewNop(),
		writeFile:  ioutils.WriteFile,
	}
	for _, opt := range opts {
		opt(m)
	}

	client, err := http.NewClient(m.clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	m.httpClient = client
	m.total = cfg.Tiles().Count()

	return m, nil
}

// Total returns the number of tiles the run covers.
func (m *Manager) Total() int {
	return m.total
}

// Progress returns the current counters. It is safe to call while Run is
// in progress.
func (m *Manager) Progress() Progress {
	return Progress{
		Completed: int(m.completed.Load()),
		Total:     m.total,
		Fetched:   int(m.fetched.Load()),
		Skipped:   int(m.skipped.Load()),
		Failed:    int(m.failed.Load()),
	}
}

// Run downloads all tiles and returns once every admitted tile has finished.
//
// Returns an error only if:
//   - The output path exists and is not a directory (ErrOutputNotDirectory)
//   - The output directory cannot be created
//   - ctx is cancelled (ctx.Err())
//
// Per-tile failures are reported through the logger and the progress
// callback and do not affect the result.
func (m *Manager) Run(ctx context.Context) error {
	out := m.cfg.OutputDir

	exists, isDir, err := ioutils.IsDir(out)
	if err != nil {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if exists && !isDir {
		return fmt.Errorf("%w: %s", ErrOutputNotDirectory, out)
	}
	if err := ioutils.EnsureDir(out); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	defer m.httpClient.CloseIdleConnections()

	start := time.Now()
	m.log.Info("download started",
		zap.Int("tiles", m.total),
		zap.Uint8("max_zoom", m.cfg.MaxZoom),
		zap.Uint8("fetch_rate", m.cfg.FetchRate),
		zap.String("output", out),
	)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %d tiles into %s", m.total, out), Level: LevelInfo})

	var g errgroup.Group
	g.SetLimit(int(m.cfg.FetchRate))

	for tile := range m.cfg.Tiles().All() {
		if ctx.Err() != nil {
			break
		}
		// Go blocks while FetchRate tiles are in flight.
		g.Go(func() error {
			m.handleTile(ctx, tile)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		m.log.Warn("download cancelled", zap.Int64("completed", m.completed.Load()), zap.Int("tiles", m.total))
		return err
	}

	p := m.Progress()
	m.log.Info("download finished",
		zap.Int("fetched", p.Fetched),
		zap.Int("skipped", p.Skipped),
		zap.Int("failed", p.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	if p.Failed > 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished with %d failed tiles", p.Failed), Level: LevelWarning})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %d tiles (%d already present)", p.Fetched, p.Skipped), Level: LevelSuccess})
	}
	return nil
}

func (m *Manager) handleTile(ctx context.Context, tile model.Tile) {
	defer m.completed.Add(1)

	skipped, err := m.fetchTile(ctx, tile)
	switch {
	case err != nil:
		m.failed.Add(1)
		if ctx.Err() != nil {
			return
		}
		var tileErr *TileError
		url := ""
		if errors.As(err, &tileErr) {
			url = tileErr.URL
		}
		m.log.Error("tile failed",
			zap.Uint8("z", tile.Z),
			zap.Int("x", tile.X),
			zap.Int("y", tile.Y),
			zap.String("url", url),
			zap.Error(err),
		)
		m.progress(ProgressEvent{Message: err.Error(), Level: LevelError, Tile: &tile})
	case skipped:
		m.skipped.Add(1)
		m.log.Debug("tile present, skipping", zap.Stringer("tile", tile))
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", tile), Level: LevelVerbose, Tile: &tile})
	default:
		m.fetched.Add(1)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", tile), Level: LevelVerbose, Tile: &tile})
	}
}

// fetchTile stores one tile. It reports skipped when the tile file already
// exists.
func (m *Manager) fetchTile(ctx context.Context, tile model.Tile) (skipped bool, err error) {
	out := m.cfg.OutputDir

	if err := ioutils.EnsureDir(tile.Dir(out)); err != nil {
		return false, &TileError{Tile: tile, Op: OpMkdir, Err: err}
	}

	path := tile.Path(out)
	exists, err := ioutils.Exists(path)
	if err != nil {
		return false, &TileError{Tile: tile, Op: OpStat, Err: err}
	}
	if exists {
		return true, nil
	}

	url := tile.URL(m.cfg.URL)
	body, err := m.httpClient.Get(ctx, url)
	if err != nil {
		op := OpFetch
		if errors.Is(err, http.ErrUntrustedURL) {
			op = OpPolicy
		}
		return false, &TileError{Tile: tile, Op: op, URL: url, Err: err}
	}

	if err := m.writeFile(ctx, path, body); err != nil {
		return false, &TileError{Tile: tile, Op: OpWrite, URL: url, Err: err}
	}
	return false, nil
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
