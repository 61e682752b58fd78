package main

import (
	"testing"
	"time"
)

func validConfig() *appConfig {
	return &appConfig{
		device:     "/dev/ttyUSB0",
		baud:       115200,
		command:    "STATUS\r\n",
		commandSet: true,
		timeout:    5 * time.Second,
		logFormat:  "text",
		logLevel:   "info",
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_EmptyCommandIsValid(t *testing.T) {
	c := validConfig()
	c.command = "" // explicitly set empty command sends a bare frame
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"missingDevice", func(c *appConfig) { c.device = "" }},
		{"missingBaud", func(c *appConfig) { c.baud = 0 }},
		{"negativeBaud", func(c *appConfig) { c.baud = -9600 }},
		{"missingCommand", func(c *appConfig) { c.commandSet = false }},
		{"negativeTimeout", func(c *appConfig) { c.timeout = -time.Second }},
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
	}
	for _, tc := range tests {
		base := validConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
