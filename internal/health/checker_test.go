package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChecker_Check(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name   string
		setup  func(c *Checker)
		status string
	}{
		{
			name: "all healthy",
			setup: func(c *Checker) {
				c.AddCheck("store", CheckFunc(func(context.Context) error { return nil }))
				c.AddCheck("redis", NewRedisChecker(client))
			},
			status: StatusOK,
		},
		{
			name: "optional failure degrades",
			setup: func(c *Checker) {
				c.AddCheck("store", CheckFunc(func(context.Context) error { return nil }))
				c.AddOptionalCheck("telegram", NewTelegramChecker(nil))
			},
			status: StatusDegraded,
		},
		{
			name: "critical failure",
			setup: func(c *Checker) {
				c.AddCheck("store", CheckFunc(func(context.Context) error { return errors.New("disk full") }))
				c.AddOptionalCheck("telegram", NewTelegramChecker(nil))
			},
			status: StatusDown,
		},
		{
			name: "database unset",
			setup: func(c *Checker) {
				c.AddCheck("database", NewDBChecker(nil))
			},
			status: StatusDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(testLogger())
			tt.setup(c)

			report := c.Check(context.Background())
			assert.Equal(t, tt.status, report.Status)
			assert.Len(t, report.Components, len(c.Names()))
		})
	}
}

func TestChecker_ReadinessHandler(t *testing.T) {
	c := NewChecker(testLogger())
	c.AddCheck("store", CheckFunc(func(context.Context) error { return errors.New("unreadable") }))

	rec := httptest.NewRecorder()
	c.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "unreadable", report.Components["store"])

	rec = httptest.NewRecorder()
	c.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
