package roles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/leave-bot/internal/domain"
	"github.com/Proton-105/leave-bot/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) AssignableRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	args := m.Called(ctx, userID)
	roles, _ := args.Get(0).([]domain.Role)
	return roles, args.Error(1)
}

func TestStaticProvider(t *testing.T) {
	cfg := config.RolesConfig{
		Source: "static",
		Default: []config.RoleEntry{
			{ID: "Member"},
			{ID: EveryoneRoleID, Label: "everyone"},
		},
		Members: map[string][]config.RoleEntry{
			"42": {{ID: "Engineer", Label: "Engineering"}, {ID: "Oncall"}},
			"7":  {},
		},
	}
	p := NewStaticProvider(cfg)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		want   []domain.Role
	}{
		{
			name:   "explicit member roles",
			userID: "42",
			want:   []domain.Role{{ID: "Engineer", Label: "Engineering"}, {ID: "Oncall", Label: "Oncall"}},
		},
		{
			name:   "falls back to defaults without everyone",
			userID: "100",
			want:   []domain.Role{{ID: "Member", Label: "Member"}},
		},
		{
			name:   "member with no roles",
			userID: "7",
			want:   []domain.Role{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.AssignableRoles(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	p.Update(config.RolesConfig{Source: "static", Default: []config.RoleEntry{{ID: "Lead"}}})
	got, err := p.AssignableRoles(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{{ID: "Lead", Label: "Lead"}}, got)
}

func TestSQLProvider_AssignableRoles(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"role_id", "label"}).
		AddRow("Engineer", "Engineering").
		AddRow(EveryoneRoleID, "everyone").
		AddRow("Oncall", "")
	sqlMock.ExpectQuery(`SELECT role_id, label\s+FROM member_roles\s+WHERE user_id = \$1`).
		WithArgs("42").
		WillReturnRows(rows)

	p := NewSQLProvider(db, testLogger())
	got, err := p.AssignableRoles(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{
		{ID: "Engineer", Label: "Engineering"},
		{ID: "Oncall", Label: "Oncall"},
	}, got)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestSQLProvider_QueryError(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectQuery(`SELECT role_id, label`).
		WithArgs("42").
		WillReturnError(errors.New("connection refused"))

	p := NewSQLProvider(db, testLogger())
	_, err = p.AssignableRoles(context.Background(), "42")
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCachedProvider_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	roles := []domain.Role{{ID: "Engineer", Label: "Engineering"}}

	next := &mockProvider{}
	next.On("AssignableRoles", mock.Anything, "42").Return(roles, nil).Once()

	cached := NewCachedProvider(next, client, time.Minute, testLogger())

	got, err := cached.AssignableRoles(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, roles, got)

	got, err = cached.AssignableRoles(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, roles, got)
	next.AssertNumberOfCalls(t, "AssignableRoles", 1)

	assert.True(t, mr.Exists("leave:roles:42"))
	assert.Equal(t, time.Minute, mr.TTL("leave:roles:42"))

	require.NoError(t, cached.Invalidate(ctx, "42"))
	next.On("AssignableRoles", mock.Anything, "42").Return([]domain.Role{}, nil).Once()

	got, err = cached.AssignableRoles(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, got)
	next.AssertExpectations(t)
}

func TestCachedProvider_Flush(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("unrelated", "keep"))

	static := NewStaticProvider(config.RolesConfig{Default: []config.RoleEntry{{ID: "Member"}}})
	cached := NewCachedProvider(static, client, time.Hour, testLogger())

	ctx := context.Background()
	for _, userID := range []string{"1", "2"} {
		got, err := cached.AssignableRoles(ctx, userID)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}

	static.Update(config.RolesConfig{Default: []config.RoleEntry{{ID: "Member"}, {ID: "Lead"}}})
	require.NoError(t, cached.Flush(ctx))

	assert.False(t, mr.Exists("leave:roles:1"))
	assert.False(t, mr.Exists("leave:roles:2"))
	assert.True(t, mr.Exists("unrelated"))

	got, err := cached.AssignableRoles(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCachedProvider_FallsThroughWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	next := &mockProvider{}
	next.On("AssignableRoles", mock.Anything, "42").Return([]domain.Role{{ID: "A", Label: "A"}}, nil).Twice()

	cached := NewCachedProvider(next, client, time.Minute, testLogger())
	for i := 0; i < 2; i++ {
		got, err := cached.AssignableRoles(context.Background(), "42")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	next.AssertExpectations(t)
}

func TestCachedProvider_PropagatesProviderError(t *testing.T) {
	next := &mockProvider{}
	next.On("AssignableRoles", mock.Anything, "42").Return(nil, errors.New("boom"))

	cached := NewCachedProvider(next, nil, 0, nil)
	_, err := cached.AssignableRoles(context.Background(), "42")
	assert.EqualError(t, err, "boom")
}
