package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv isolates a test from the host's overrides and supplies the secret
// release mode requires.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("HUDDLE_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Errorf("port=%d mode=%s", cfg.Port, cfg.Mode)
	}
	if cfg.Secret != "test-secret" {
		t.Errorf("secret = %q, want value of HUDDLE_SECRET", cfg.Secret)
	}
	if cfg.PingPeriod != 54*time.Second || cfg.WriteWait != 10*time.Second {
		t.Errorf("ping=%v write=%v", cfg.PingPeriod, cfg.WriteWait)
	}
	if cfg.History.DefaultLimit != 200 || cfg.History.MaxLimit != 200 || cfg.History.MaxLen != 1000 {
		t.Errorf("history = %+v", cfg.History)
	}
	if !cfg.Auth.Required || cfg.Auth.TokenTTL != 168*time.Hour {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if !cfg.Rooms.Exclusive || cfg.Rooms.Backpressure != "drop" {
		t.Errorf("rooms = %+v", cfg.Rooms)
	}
	if cfg.Store.Driver != DriverRedis || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("store=%s redis=%s", cfg.Store.Driver, cfg.Redis.Addr)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("ice = %+v", cfg.ICEServers)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
mode: debug
port: 9000
store:
  driver: memory
rooms:
  exclusive: false
  backpressure: kick
history:
  default_limit: 50
ice_servers:
  - urls: ["turn:turn.example.com:3478"]
    username: u
    credential: p
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 9000 || cfg.Mode != "debug" || cfg.Store.Driver != DriverMemory {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Rooms.Exclusive || cfg.Rooms.Backpressure != "kick" {
		t.Errorf("rooms = %+v", cfg.Rooms)
	}
	if cfg.History.DefaultLimit != 50 || cfg.History.MaxLimit != 200 {
		t.Errorf("history = %+v", cfg.History)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].Credential != "p" {
		t.Errorf("ice = %+v", cfg.ICEServers)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3001")
	t.Setenv("REDIS_ADDR", "cache:6380")
	path := writeConfig(t, "port: 9000\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 3001 {
		t.Errorf("port = %d, want 3001 from PORT", cfg.Port)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Errorf("redis.addr = %s, want cache:6380", cfg.Redis.Addr)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "rooms:\n  backpressure: shout\n")
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "backpressure") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadFileRejectsMalformed(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: [9000\nmode: debug\n")
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("err = %v, want read failure", err)
	}
}

func TestReleaseRejectsDefaultSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUDDLE_SECRET", "")
	if _, err := LoadFile(writeConfig(t, "mode: release\n")); err == nil || !strings.Contains(err.Error(), "secret") {
		t.Fatalf("release with default secret: err = %v", err)
	}
	if _, err := LoadFile(writeConfig(t, "mode: debug\n")); err != nil {
		t.Fatalf("debug with default secret: %v", err)
	}
	if _, err := LoadFile(writeConfig(t, "mode: release\nsecret: s3cret\n")); err != nil {
		t.Fatalf("release with explicit secret: %v", err)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 70000 }, "port"},
		{"mode", func(c *Config) { c.Mode = "prod" }, "mode"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"driver", func(c *Config) { c.Store.Driver = "sqlite" }, "driver"},
		{"redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"limits", func(c *Config) { c.History.DefaultLimit = 500 }, "exceeds"},
		{"rate", func(c *Config) { c.Rate.Burst = 0 }, "rate"},
		{"ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "token_ttl"},
		{"ice", func(c *Config) { c.ICEServers = []ICEServer{{}} }, "ice_servers"},
		{"secret", func(c *Config) { c.Secret = "" }, "secret"},
		{"default secret", func(c *Config) { c.Secret = DefaultSecret }, "release"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
