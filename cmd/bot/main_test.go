package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/leave-bot/internal/roles"
	"github.com/Proton-105/leave-bot/pkg/config"
)

func TestSharedPendingSweep(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		name    string
		backend string
		rdb     *goredis.Client
		want    bool
	}{
		{name: "redis table with redis", backend: "redis", rdb: rdb, want: true},
		{name: "memory table with redis", backend: "memory", rdb: rdb, want: false},
		{name: "memory table without redis", backend: "memory", rdb: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Pending: config.PendingConfig{Backend: tt.backend}}
			assert.Equal(t, tt.want, sharedPendingSweep(cfg, tt.rdb))
		})
	}
}

func TestReloadRolesFlushesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	static := roles.NewStaticProvider(config.RolesConfig{Default: []config.RoleEntry{{ID: "Member"}}})
	cached := roles.NewCachedProvider(static, rdb, time.Hour, log)

	ctx := context.Background()
	got, err := cached.AssignableRoles(ctx, "42")
	require.NoError(t, err)
	require.Len(t, got, 1)

	reloadRoles(static, cached, log)(config.RolesConfig{Default: []config.RoleEntry{{ID: "Member"}, {ID: "Lead"}}})

	got, err = cached.AssignableRoles(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
