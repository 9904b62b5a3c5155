package logger

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Development switches to the console encoder with colored levels.
	Development bool

	// OutputPaths lists sinks as accepted by zap ("stderr", file paths).
	// Default: stderr
	OutputPaths []string
}

// New builds a zap logger from opts.
//
// Example:
//
//	log, err := logger.New(logger.Options{Level: "debug", Development: true})
//	if err != nil {
//	    return err
//	}
//	defer log.Sync()
func New(opts Options) (*zap.Logger, error) {
	cfg, err := config(opts)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// NewBuffered builds a logger like New that writes into the returned Buffer
// instead of opts.OutputPaths. Use it while the terminal belongs to a full
// screen UI and flush the buffer to stderr once the UI has exited.
func NewBuffered(opts Options) (*zap.Logger, *Buffer, error) {
	cfg, err := config(opts)
	if err != nil {
		return nil, nil, err
	}

	encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}
	buf := &Buffer{}
	return zap.New(zapcore.NewCore(encoder, buf, cfg.Level)), buf, nil
}

func config(opts Options) (zap.Config, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = level
	cfg.DisableStacktrace = true

	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}
	return cfg, nil
}

// Buffer is a log sink that keeps every entry in memory until Flush.
// It is safe for concurrent use.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) Sync() error {
	return nil
}

// Flush writes the buffered entries to w and empties the buffer.
func (b *Buffer) Flush(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.buf.WriteTo(w)
	return err
}
