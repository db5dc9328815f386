package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
	assert.Equal(t, "drop", cfg.Backpressure)
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := chdirTemp(t)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
port: 7000
mode: debug
backpressure: disconnect
signal_rate_limit: 5
ice_servers:
  - urls: ["turn:turn.example.org:3478"]
    username: u
    credential: p
`), 0o600))

	t.Setenv("STREAM_SIGNAL_RATE_LIMIT", "9")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", file, "--port", "7100"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Port, "flag beats file")
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, "disconnect", cfg.Backpressure)
	assert.Equal(t, 9, cfg.SignalRateLimit, "env beats file")

	ice := cfg.WebRTCICEServers()
	require.Len(t, ice, 1)
	assert.Equal(t, []string{"turn:turn.example.org:3478"}, ice[0].URLs)
	assert.Equal(t, "u", ice[0].Username)
	assert.Equal(t, "p", ice[0].Credential)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port: 8080, PingPeriod: time.Second, PongWait: 2 * time.Second, SendBuffer: 1,
			SignalRateLimit: 1, SignalRateInterval: time.Second, Backpressure: "drop",
			ICEServers: []ICEServer{{URLs: []string{"stun:a"}}},
		}
	}
	c := valid()
	require.NoError(t, c.Validate())

	c = valid()
	c.PingPeriod = 3 * time.Second
	assert.Error(t, c.Validate())

	c = valid()
	c.Backpressure = "nope"
	assert.Error(t, c.Validate())

	c = valid()
	c.ICEServers = []ICEServer{{URLs: []string{"http://x"}}}
	assert.Error(t, c.Validate())

	c = valid()
	c.Port = 0
	assert.Error(t, c.Validate())
}

func TestValidateICEServerURLs(t *testing.T) {
	base := Config{
		Port: 8080, PingPeriod: time.Second, PongWait: 2 * time.Second, SendBuffer: 1,
		SignalRateLimit: 1, SignalRateInterval: time.Second, Backpressure: "drop",
	}
	cases := []struct {
		name   string
		server ICEServer
		ok     bool
	}{
		{"stun default port", ICEServer{URLs: []string{"stun:stun.l.google.com"}}, true},
		{"stun with port", ICEServer{URLs: []string{"stun:stun.l.google.com:19302"}}, true},
		{"stuns", ICEServer{URLs: []string{"stuns:stun.example.org:5349"}}, true},
		{"turn tcp", ICEServer{URLs: []string{"turn:turn.example.org:3478?transport=tcp"}, Username: "u", Credential: "p"}, true},
		{"turns", ICEServer{URLs: []string{"turns:turn.example.org"}, Username: "u", Credential: "p"}, true},
		{"unknown scheme", ICEServer{URLs: []string{"http://stun.example.org"}}, false},
		{"stun with query", ICEServer{URLs: []string{"stun:stun.example.org:3478?transport=tcp"}}, false},
		{"turn bad transport", ICEServer{URLs: []string{"turn:turn.example.org:3478?transport=sctp"}, Username: "u", Credential: "p"}, false},
		{"bad port", ICEServer{URLs: []string{"stun:stun.example.org:port"}}, false},
		{"turn without credentials", ICEServer{URLs: []string{"turn:turn.example.org:3478"}}, false},
		{"no urls", ICEServer{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			c.ICEServers = []ICEServer{tc.server}
			if tc.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}
