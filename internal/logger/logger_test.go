package logger

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		wantErr bool
	}{
		{"", false, false},
		{"debug", true, false},
		{"info", false, false},
		{"warn", false, false},
		{"error", false, false},
		{"loud", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(Options{Level: tt.level})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.debug, log.Core().Enabled(zap.DebugLevel))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	log, err := New(Options{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Error("tile failed", zap.String("tile", "18/135470/87999"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tile":"18/135470/87999"`)
	assert.Contains(t, string(data), "tile failed")
}

func TestNewBuffered_KeepsEveryEntry(t *testing.T) {
	log, buf, err := NewBuffered(Options{Level: "error"})
	require.NoError(t, err)

	const failures = 250
	var wg sync.WaitGroup
	for i := range failures {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Error("tile failed", zap.String("tile", fmt.Sprintf("18/%d/87999", i)))
		}()
	}
	wg.Wait()
	log.Info("not an error")

	var out bytes.Buffer
	require.NoError(t, buf.Flush(&out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, failures)
	assert.Contains(t, out.String(), `"tile":"18/249/87999"`)
	assert.NotContains(t, out.String(), "not an error")

	out.Reset()
	require.NoError(t, buf.Flush(&out))
	assert.Empty(t, out.String())
}

func TestNewBuffered_InvalidLevel(t *testing.T) {
	_, _, err := NewBuffered(Options{Level: "loud"})
	assert.Error(t, err)
}
