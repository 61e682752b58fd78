package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := validConfig()

	os.Setenv("UARTCTL_DEVICE", "/dev/ttyACM3")
	os.Setenv("UARTCTL_BAUD", "57600")
	os.Setenv("UARTCTL_TIMEOUT", "750ms")
	os.Setenv("UARTCTL_DEBUG", "true")
	t.Cleanup(func() {
		os.Unsetenv("UARTCTL_DEVICE")
		os.Unsetenv("UARTCTL_BAUD")
		os.Unsetenv("UARTCTL_TIMEOUT")
		os.Unsetenv("UARTCTL_DEBUG")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.device != "/dev/ttyACM3" {
		t.Fatalf("expected device override, got %s", base.device)
	}
	if base.baud != 57600 {
		t.Fatalf("expected baud override, got %d", base.baud)
	}
	if base.timeout != 750*time.Millisecond {
		t.Fatalf("expected timeout 750ms got %v", base.timeout)
	}
	if !base.debug {
		t.Fatalf("expected debug true")
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{baud: 115200}
	os.Setenv("UARTCTL_BAUD", "9600")
	t.Cleanup(func() { os.Unsetenv("UARTCTL_BAUD") })
	// Simulate user passed -baud flag (so env should be ignored)
	if err := applyEnvOverrides(base, map[string]struct{}{"baud": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.baud != 115200 {
		t.Fatalf("expected baud unchanged 115200 got %d", base.baud)
	}
}

func TestApplyEnvOverrides_EmptyCommandAllowed(t *testing.T) {
	base := &appConfig{}
	os.Setenv("UARTCTL_COMMAND", "")
	t.Cleanup(func() { os.Unsetenv("UARTCTL_COMMAND") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !base.commandSet || base.command != "" {
		t.Fatalf("empty UARTCTL_COMMAND must count as an explicit empty command")
	}
}

func TestApplyEnvOverrides_BadValues(t *testing.T) {
	tests := []struct {
		name, key, val string
	}{
		{"badBaud", "UARTCTL_BAUD", "notint"},
		{"badTimeout", "UARTCTL_TIMEOUT", "soon"},
	}
	for _, tc := range tests {
		base := &appConfig{}
		os.Setenv(tc.key, tc.val)
		err := applyEnvOverrides(base, map[string]struct{}{})
		os.Unsetenv(tc.key)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
