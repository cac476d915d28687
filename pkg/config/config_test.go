package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/namecheap-portfolio/pkg/client"
	"github.com/Sternrassler/namecheap-portfolio/pkg/logging"
	"github.com/Sternrassler/namecheap-portfolio/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"NAMECHEAP_API_USER",
	"NAMECHEAP_API_KEY",
	"NAMECHEAP_USERNAME",
	"NAMECHEAP_CLIENT_IP",
	"NAMECHEAP_SANDBOX",
	"NAMECHEAP_ENDPOINT",
	"NAMECHEAP_PAGE_SIZE",
	"NAMECHEAP_TIMEOUT",
	"NAMECHEAP_MAX_PAGES",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"LOG_LEVEL",
	"LOG_PRETTY",
	"METRICS_TEXTFILE",
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func required() map[string]string {
	return map[string]string{
		"NAMECHEAP_API_USER":  "apiuser",
		"NAMECHEAP_API_KEY":   "secret",
		"NAMECHEAP_CLIENT_IP": "203.0.113.7",
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	setEnv(t, required())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, NamecheapConfig{
		APIUser:  "apiuser",
		APIKey:   "secret",
		UserName: "apiuser",
		ClientIP: "203.0.113.7",
		Timeout:  30 * time.Second,
		MaxPages: pagination.DefaultConfig().MaxPages,
	}, cfg.Namecheap)
	assert.Equal(t, RedisConfig{}, cfg.Redis)
	assert.Equal(t, AppConfig{LogLevel: logging.LevelInfo, LogPretty: true}, cfg.App)

	assert.Equal(t, client.DefaultEndpoint, cfg.EndpointURL())
	assert.Equal(t, pagination.DefaultConfig(), cfg.PaginationConfig())
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_AllSet(t *testing.T) {
	clearEnv(t)
	setEnv(t, map[string]string{
		"NAMECHEAP_API_USER":  "apiuser",
		"NAMECHEAP_API_KEY":   "secret",
		"NAMECHEAP_USERNAME":  "owner",
		"NAMECHEAP_CLIENT_IP": "2001:db8::1",
		"NAMECHEAP_SANDBOX":   "true",
		"NAMECHEAP_PAGE_SIZE": "100",
		"NAMECHEAP_TIMEOUT":   "45s",
		"NAMECHEAP_MAX_PAGES": "0",
		"REDIS_ADDR":          "localhost:6379",
		"REDIS_PASSWORD":      "pw",
		"REDIS_DB":            "3",
		"LOG_LEVEL":           "debug",
		"LOG_PRETTY":          "false",
		"METRICS_TEXTFILE":    "/tmp/namecheap.prom",
	})

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "owner", cfg.Namecheap.UserName)
	assert.Equal(t, 100, cfg.Namecheap.PageSize)
	assert.Equal(t, 45*time.Second, cfg.Namecheap.Timeout)
	assert.Equal(t, 0, cfg.Namecheap.MaxPages)
	assert.Equal(t, pagination.Config{MaxPages: 0}, cfg.PaginationConfig())
	assert.Equal(t, client.SandboxEndpoint, cfg.EndpointURL())
	assert.Equal(t, RedisConfig{Addr: "localhost:6379", Password: "pw", DB: 3}, cfg.Redis)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, AppConfig{LogLevel: logging.LevelDebug, LogPretty: false, MetricsTextfile: "/tmp/namecheap.prom"}, cfg.App)

	cc := cfg.ClientConfig()
	assert.Equal(t, client.SandboxEndpoint, cc.Endpoint)
	assert.Equal(t, 100, cc.PageSize)
	assert.Equal(t, 45*time.Second, cc.Timeout)
	assert.Equal(t, client.DefaultUserAgent, cc.UserAgent)
	assert.Equal(t, client.Credentials{APIUser: "apiuser", APIKey: "secret", UserName: "owner", ClientIP: "2001:db8::1"}, cc.Credentials)
	assert.Nil(t, cc.Gate)
}

func TestLoad_EndpointOverridesSandbox(t *testing.T) {
	clearEnv(t)
	setEnv(t, required())
	setEnv(t, map[string]string{
		"NAMECHEAP_SANDBOX":  "true",
		"NAMECHEAP_ENDPOINT": "http://127.0.0.1:8080/xml.response",
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/xml.response", cfg.EndpointURL())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{name: "missing api user", envVars: map[string]string{"NAMECHEAP_API_USER": ""}, wantErr: "NAMECHEAP_API_USER is required"},
		{name: "missing api key", envVars: map[string]string{"NAMECHEAP_API_KEY": ""}, wantErr: "NAMECHEAP_API_KEY is required"},
		{name: "missing client ip", envVars: map[string]string{"NAMECHEAP_CLIENT_IP": ""}, wantErr: "NAMECHEAP_CLIENT_IP is required"},
		{name: "client ip not an address", envVars: map[string]string{"NAMECHEAP_CLIENT_IP": "home"}, wantErr: "not an IP address"},
		{name: "page size too small", envVars: map[string]string{"NAMECHEAP_PAGE_SIZE": "5"}, wantErr: "NAMECHEAP_PAGE_SIZE must be 0 or between 10 and 100"},
		{name: "page size too large", envVars: map[string]string{"NAMECHEAP_PAGE_SIZE": "101"}, wantErr: "NAMECHEAP_PAGE_SIZE must be 0 or between 10 and 100"},
		{name: "page size not a number", envVars: map[string]string{"NAMECHEAP_PAGE_SIZE": "ten"}, wantErr: "invalid NAMECHEAP_PAGE_SIZE"},
		{name: "timeout not a duration", envVars: map[string]string{"NAMECHEAP_TIMEOUT": "30"}, wantErr: "invalid NAMECHEAP_TIMEOUT"},
		{name: "timeout negative", envVars: map[string]string{"NAMECHEAP_TIMEOUT": "-1s"}, wantErr: "NAMECHEAP_TIMEOUT must be greater than 0"},
		{name: "max pages negative", envVars: map[string]string{"NAMECHEAP_MAX_PAGES": "-1"}, wantErr: "NAMECHEAP_MAX_PAGES must be >= 0"},
		{name: "sandbox not a bool", envVars: map[string]string{"NAMECHEAP_SANDBOX": "maybe"}, wantErr: "invalid NAMECHEAP_SANDBOX"},
		{name: "redis db negative", envVars: map[string]string{"REDIS_DB": "-2"}, wantErr: "REDIS_DB must be >= 0"},
		{name: "unknown log level", envVars: map[string]string{"LOG_LEVEL": "loud"}, wantErr: "invalid LOG_LEVEL"},
		{name: "log pretty not a bool", envVars: map[string]string{"LOG_PRETTY": "sometimes"}, wantErr: "invalid LOG_PRETTY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setEnv(t, required())
			setEnv(t, tt.envVars)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "NAMECHEAP_API_USER=fileuser\nNAMECHEAP_API_KEY=filekey\nNAMECHEAP_CLIENT_IP=198.51.100.4\nNAMECHEAP_PAGE_SIZE=20\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Variables already in the environment win over the file.
	t.Setenv("NAMECHEAP_PAGE_SIZE", "50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fileuser", cfg.Namecheap.APIUser)
	assert.Equal(t, "fileuser", cfg.Namecheap.UserName)
	assert.Equal(t, "filekey", cfg.Namecheap.APIKey)
	assert.Equal(t, 50, cfg.Namecheap.PageSize)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)
	setEnv(t, required())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "apiuser", cfg.Namecheap.APIUser)
}

func TestLoad_UnreadableEnvFile(t *testing.T) {
	clearEnv(t)
	setEnv(t, required())

	// A directory cannot be parsed as an env file.
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load")
}
