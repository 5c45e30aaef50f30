package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			logger, err := New(Config{Level: level, OutputPaths: []string{"stderr"}})
			require.NoError(t, err)
			assert.Equal(t, level, logger.Level().String())
		})
	}
}

func TestJSONOutputAndComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := DefaultConfig()
	cfg.OutputPaths = []string{path}

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Component("sandbox").Info("run finished", zap.String("frame", "f1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, `"logger":"codefixlab.sandbox"`)
	assert.Contains(t, line, `"message":"run finished"`)
	assert.Contains(t, line, `"frame":"f1"`)
	assert.Contains(t, line, `"timestamp":`)
}

func TestSetLevelReachesComponents(t *testing.T) {
	logger, err := New(Config{Level: "info", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	child := logger.Component("api")

	assert.False(t, child.Core().Enabled(zapcore.DebugLevel))
	logger.SetLevel(zapcore.DebugLevel)
	assert.True(t, child.Core().Enabled(zapcore.DebugLevel))
}

func TestLevelHandler(t *testing.T) {
	logger, err := New(Config{Level: "info", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	h := logger.LevelHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"level":"warn"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, zapcore.WarnLevel, logger.Level())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"level":"warn"}`, w.Body.String())
}

func TestNop(t *testing.T) {
	logger := NewNop()
	logger.Component("sandbox").Info("discarded")
	assert.Equal(t, zapcore.InfoLevel, logger.Level())
}
