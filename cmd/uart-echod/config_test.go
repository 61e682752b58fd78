package main

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	base := func() *appConfig {
		return &appConfig{
			serialDev: "/dev/ttyUSB1",
			baud:      115200,
			readTO:    50 * time.Millisecond,
			logFormat: "text",
			logLevel:  "info",
		}
	}
	if err := base().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"missingDevice", func(c *appConfig) { c.serialDev = "" }},
		{"badBaud", func(c *appConfig) { c.baud = 0 }},
		{"badReadTO", func(c *appConfig) { c.readTO = 0 }},
		{"badFormat", func(c *appConfig) { c.logFormat = "yaml" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "loud" }},
		{"badInterval", func(c *appConfig) { c.logMetricsEvery = -time.Second }},
	}
	for _, tc := range tests {
		c := base()
		tc.mod(c)
		if err := c.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
