package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true, Port: 9100},
		Client: ClientConfig{
			Program:      100003,
			Version:      3,
			RetryTimeout: 100 * time.Millisecond,
			CallTimeout:  time.Second,
			WaitChan:     "nfsreq",
		},
		Transport: TransportConfig{Network: "udp6", LocalAddress: "[::1]:0"},
		Auth:      AuthConfig{Flavor: "unix"},
	}
	ApplyDefaults(cfg)

	if cfg.Metrics.Port != 9100 {
		t.Errorf("Expected port 9100 preserved, got %d", cfg.Metrics.Port)
	}
	if cfg.Client.Program != 100003 || cfg.Client.Version != 3 {
		t.Errorf("Expected program 100003 v3 preserved, got %d v%d", cfg.Client.Program, cfg.Client.Version)
	}
	if cfg.Client.RetryTimeout != 100*time.Millisecond {
		t.Errorf("Expected retry_timeout preserved, got %v", cfg.Client.RetryTimeout)
	}
	if cfg.Client.CallTimeout != time.Second {
		t.Errorf("Expected call_timeout preserved, got %v", cfg.Client.CallTimeout)
	}
	if cfg.Client.WaitChan != "nfsreq" {
		t.Errorf("Expected wait_chan preserved, got %q", cfg.Client.WaitChan)
	}
	if cfg.Transport.Network != "udp6" {
		t.Errorf("Expected network preserved, got %q", cfg.Transport.Network)
	}
	if cfg.Auth.Flavor != "unix" {
		t.Errorf("Expected flavor preserved, got %q", cfg.Auth.Flavor)
	}
}

func TestApplyDefaults_SendBurst(t *testing.T) {
	cfg := &Config{Client: ClientConfig{MaxSendRate: 100}}
	ApplyDefaults(cfg)
	if cfg.Client.SendBurst != 1 {
		t.Errorf("Expected send_burst 1 with a rate set, got %d", cfg.Client.SendBurst)
	}

	cfg = &Config{}
	ApplyDefaults(cfg)
	if cfg.Client.SendBurst != 0 {
		t.Errorf("Expected send_burst 0 without a rate, got %d", cfg.Client.SendBurst)
	}
}

func TestApplyDefaults_UnixAuthSection(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	for _, key := range []string{"machine_name", "uid", "gid", "gids"} {
		if _, ok := cfg.Auth.Unix[key]; !ok {
			t.Errorf("Expected auth.unix.%s default", key)
		}
	}
	if name, _ := cfg.Auth.Unix["machine_name"].(string); name == "" {
		t.Error("Expected a non-empty default machine_name")
	}
}

func TestApplyDefaults_KeepsUnixAuthValues(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{
		Flavor: "unix",
		Unix:   map[string]any{"machine_name": "client1", "uid": 42},
	}}
	ApplyDefaults(cfg)

	if cfg.Auth.Unix["machine_name"] != "client1" {
		t.Errorf("Expected machine_name preserved, got %v", cfg.Auth.Unix["machine_name"])
	}
	if cfg.Auth.Unix["uid"] != 42 {
		t.Errorf("Expected uid preserved, got %v", cfg.Auth.Unix["uid"])
	}
}
