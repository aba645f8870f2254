package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidNetwork(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Transport.Network = "tcp"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for stream network")
	}
	if !strings.Contains(err.Error(), "Network") {
		t.Errorf("Expected error to name the network field, got: %v", err)
	}
}

func TestValidate_InvalidAuthFlavor(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Flavor = "kerberos"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unsupported auth flavor")
	}
}

func TestValidate_NonPositiveRetryTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Client.RetryTimeout = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero retry_timeout")
	}
	if !strings.Contains(err.Error(), "gt") {
		t.Errorf("Expected 'gt' validation error, got: %v", err)
	}
}

func TestValidate_DatagramSizeLimit(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Client.SendSize = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for send_size above the UDP limit")
	}
}

func TestValidate_MetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for metrics port out of range")
	}
}

func TestValidate_BurstWithoutRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Client.SendBurst = 4

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for send_burst without max_send_rate")
	}
	if !strings.Contains(err.Error(), "max_send_rate") {
		t.Errorf("Expected error to mention max_send_rate, got: %v", err)
	}
}

func TestValidate_InvalidLocalAddress(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Transport.LocalAddress = "not an address"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for malformed local_address")
	}
}

func TestValidate_UnixAuthWithoutMachineName(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Flavor = "unix"
	cfg.Auth.Unix["machine_name"] = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for empty machine_name")
	}
	if !strings.Contains(err.Error(), "machine_name") {
		t.Errorf("Expected error to mention machine_name, got: %v", err)
	}
}

func TestValidate_UnixAuthIgnoredForNone(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Unix["machine_name"] = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected auth.unix to be ignored with flavor none, got: %v", err)
	}
}
