package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) *viper.Viper {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	return v
}

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	v := writeConfig(t, `
bot:
  token: "123:abc"
roles:
  source: static
  default:
    - id: member
      label: Member
  members:
    "42":
      - id: mod
        label: Moderator
`)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "vacationData.json", cfg.Store.Path)
	assert.Equal(t, "memory", cfg.Pending.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Pending.TTL)
	assert.Equal(t, []RoleEntry{{ID: "member", Label: "Member"}}, cfg.Roles.Default)
	assert.Equal(t, "mod", cfg.Roles.Members["42"][0].ID)
}

func TestLoadFrom_ValidationFails(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "missing token",
			body: "store:\n  backend: file\n",
		},
		{
			name: "unknown store backend",
			body: "bot:\n  token: x\nstore:\n  backend: s3\n",
		},
		{
			name: "redis enabled without address",
			body: "bot:\n  token: x\nredis:\n  enabled: true\n",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "leave", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5432 user=bot password=pw dbname=leave sslmode=disable", cfg.GetDBConnectionString())
}
