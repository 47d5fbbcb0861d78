package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interviewsrv.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

const minimal = `
format_version = "0.1.2"
[server]
port = "9000"
`

func clearEnv(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "INTERVIEW_DB_DSN", "INTERVIEW_JWT_SECRET", "INTERVIEW_SERVER_PORT", "INTERVIEW_LOG_LEVEL", "INTERVIEW_STORE_BACKEND"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestInitLoadsRepositoryConfig(t *testing.T) {
	clearEnv(t)
	TestInit()
	c := Config()
	require.NotNil(t, c)
	assert.Equal(t, "8680", c.Server.Port)
	assert.Equal(t, StoreMemory, c.Store.Backend)
	assert.Equal(t, 90*time.Second, c.Server.GetRequestTimeout())
	assert.Equal(t, 30*time.Second, c.Generation.GetTimeout())
	assert.False(t, c.Generation.Enabled())
	assert.True(t, c.RateLimit.Enabled())
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	require.NoError(t, LoadConfig(writeConfig(t, minimal)))
	c := Config()
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, ProviderOpenAI, c.Generation.Provider)
	assert.Equal(t, uint(3), c.Generation.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, c.Generation.GetRetryDelay())
	assert.Equal(t, StoreMemory, c.Store.Backend)
	assert.Equal(t, 5, c.Interview.DefaultQuestionCount)
	assert.Equal(t, "X-Interview-Owner", c.Auth.OwnerHeader)
	assert.Equal(t, int64(1<<20), c.Server.MaxRequestBodySize)
	assert.False(t, c.RateLimit.Enabled())
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTERVIEW_SERVER_PORT", "7777")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("INTERVIEW_STORE_BACKEND", StoreSQLite)
	t.Setenv("INTERVIEW_DB_DSN", "file:test.db")
	t.Setenv("INTERVIEW_JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("INTERVIEW_LOG_LEVEL", "debug")

	require.NoError(t, LoadConfig(writeConfig(t, minimal)))
	c := Config()
	assert.Equal(t, "7777", c.Server.Port)
	assert.True(t, c.Generation.Enabled())
	assert.Equal(t, StoreSQLite, c.Store.Backend)
	assert.Equal(t, "file:test.db", c.Store.DSN)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestInvalidConfigs(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"old format", `format_version = "0.0.9"` + "\n[server]\nport = \"1\"", "unsupported config file format version"},
		{"newer format", `format_version = "1.0.0"` + "\n[server]\nport = \"1\"", "unsupported config file format version"},
		{"garbage format", `format_version = "latest"` + "\n[server]\nport = \"1\"", "invalid format_version"},
		{"missing port", `format_version = "0.1.0"`, "server.port is required"},
		{"bad timeout", minimal + "request_timeout = \"soon\"", "server.request_timeout"},
		{"unknown backend", minimal + "[store]\nbackend = \"redis\"", "unknown store.backend"},
		{"postgres without dsn", minimal + "[store]\nbackend = \"postgres\"", "INTERVIEW_DB_DSN"},
		{"unknown provider", minimal + "[generation]\nprovider = \"local\"", "unknown generation.provider"},
		{"negative rate", minimal + "[rate_limit]\nrequests_per_second = -1", "rate_limit"},
		{"missing prompts file", minimal + "[interview]\nprompts_file = \"/does/not/exist.yaml\"", "interview.prompts_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Error(t, LoadConfig(""))
}

func TestShortJWTSecretRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTERVIEW_JWT_SECRET", "short")
	err := LoadConfig(writeConfig(t, minimal))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "16 bytes")
}
