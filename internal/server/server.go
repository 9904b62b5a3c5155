package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	ioutils "github.com/handiism/osm-tile-downloader/internal/io"
	"github.com/handiism/osm-tile-downloader/internal/model"
)

// maxZoom bounds the zoom path segment.
const maxZoom = 30

// Server serves a downloaded <z>/<x>/<y> tile tree over HTTP.
type Server struct {
	dir string
	log *zap.Logger
}

// New creates a Server for the tree rooted at dir.
func New(dir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{dir: dir, log: log}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/tiles/:z/:x/:y", s.getTile)
	router.HEAD("/tiles/:z/:x/:y", s.getTile)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		MaxAge:         300,
	})

	return alice.New(
		corsHandler.Handler,
		s.recoverPanic,
		Heartbeat("/healthz"),
		Logger(s.log),
	).Then(router)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("serving tiles", zap.String("addr", addr), zap.String("dir", s.dir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) getTile(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	tile, ok := parseTile(p)
	if !ok {
		writeError(w, http.StatusBadRequest, "tile coordinates must be non-negative integers")
		return
	}

	data, err := os.ReadFile(tile.Path(s.dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "tile "+tile.String()+" not found")
			return
		}
		s.log.Error("read tile", zap.Stringer("tile", tile), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "the server encountered a problem")
		return
	}

	format, _, _ := ioutils.DetectFormat(data)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// parseTile reads z, x and y from the route. y may carry a file extension
// such as ".png", which is ignored.
func parseTile(p httprouter.Params) (model.Tile, bool) {
	z, err := strconv.Atoi(p.ByName("z"))
	if err != nil || z < 0 || z > maxZoom {
		return model.Tile{}, false
	}
	x, err := strconv.Atoi(p.ByName("x"))
	if err != nil || x < 0 {
		return model.Tile{}, false
	}
	yStr := p.ByName("y")
	yStr = strings.TrimSuffix(yStr, filepath.Ext(yStr))
	y, err := strconv.Atoi(yStr)
	if err != nil || y < 0 {
		return model.Tile{}, false
	}
	return model.Tile{X: x, Y: y, Z: uint8(z)}, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    http.StatusText(status),
			"message": message,
		},
	})
}
