package utils

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(t.TempDir(), "loud")
	require.Error(t, err)
}

func TestInitLogger_CreatesDir(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	require.NoError(t, InitLogger(dir, "debug"))
	assert.DirExists(t, dir)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(RequestIDKey).(string)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestNewExponentialBackoff(t *testing.T) {
	b := NewExponentialBackoff(0)
	assert.Equal(t, 5*time.Minute, b.MaxElapsedTime)
	assert.Equal(t, time.Second, b.InitialInterval)

	b = NewExponentialBackoff(20 * time.Second)
	assert.Equal(t, 20*time.Second, b.MaxElapsedTime)
}
