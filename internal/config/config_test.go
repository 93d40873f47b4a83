package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
store:
  driver: sqlite
  sqlite:
    path: `+filepath.Join(dir, "data", "ts.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "file", cfg.Profiles.Source)
	assert.Equal(t, 8, cfg.Booking.GenericFrom)
	assert.Equal(t, 19, cfg.Booking.GenericTo)
	assert.Equal(t, 60*time.Second, cfg.BookingGrace())
	assert.Equal(t, 2*time.Hour, cfg.SoonCancelWindow())
	assert.Equal(t, 14*24*time.Hour, cfg.BackupRetention())
	assert.Zero(t, cfg.ProfilesCacheTTL())
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TS_PG_URL", "postgres://u:p@localhost/ts")
	path := writeFile(t, t.TempDir(), "config.yaml", `
store:
  driver: postgres
  postgres:
    url: ${TS_PG_URL}
booking:
  timezone: America/Bogota
  grace_seconds: 90
  cancelled_slots: retain
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/ts", cfg.Store.Postgres.URL)
	assert.Equal(t, 90*time.Second, cfg.BookingGrace())
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", loc.String())
}

func TestLoad_EnvPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "store:\n  driver: memory\n")
	t.Setenv("TECHSLOTS_CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: cassandra\n"},
		{"postgres without url", "store:\n  driver: postgres\n"},
		{"redis without address", "store:\n  driver: redis\n"},
		{"firestore without project", "store:\n  driver: memory\nprofiles:\n  source: firestore\n"},
		{"bad policy", "store:\n  driver: memory\nbooking:\n  cancelled_slots: sometimes\n"},
		{"bad timezone", "store:\n  driver: memory\nbooking:\n  timezone: Mars/Olympus\n"},
		{"bad generic hours", "store:\n  driver: memory\nbooking:\n  generic_from: 20\n  generic_to: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
