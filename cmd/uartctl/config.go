package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Exit codes. Missing or invalid startup configuration exits with
// exitUsage so wrappers can tell operator error from device failure.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type appConfig struct {
	device     string
	baud       int
	command    string
	commandSet bool // -command was given; an explicitly empty command is valid
	timeout    time.Duration
	debug      bool
	logFormat  string
	logLevel   string
	logMetrics bool
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	device := flag.String("device", "", "Serial device path (e.g., /dev/ttyUSB0)")
	baud := flag.Int("baud", 0, "Baud rate: 9600|19200|38400|57600|115200")
	command := flag.String("command", "", "Command to frame and send (may be empty)")
	timeout := flag.Duration("timeout", 5*time.Second, "How long to wait for the response end marker")
	debug := flag.Bool("debug", false, "Debug logging, mirrored to "+debugLogPath)
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	logMetrics := flag.Bool("log-metrics", false, "Log a metrics snapshot after the exchange")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.device = *device
	cfg.baud = *baud
	cfg.command = *command
	_, cfg.commandSet = setFlags["command"]
	cfg.timeout = *timeout
	cfg.debug = *debug
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.logMetrics = *logMetrics

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Fprintf(os.Stderr, "environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		flag.Usage()
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open the device – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.device == "" {
		return errors.New("missing required -device")
	}
	if c.baud <= 0 {
		return errors.New("missing required -baud")
	}
	if !c.commandSet {
		return errors.New("missing required -command")
	}
	if c.timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %v)", c.timeout)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	return nil
}

// applyEnvOverrides maps UARTCTL_* environment variables to config fields
// unless a corresponding flag was explicitly set. Empty values are ignored
// except UARTCTL_COMMAND, where empty is a legal payload.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["device"]; !ok {
		if v, ok := get("UARTCTL_DEVICE"); ok && v != "" {
			c.device = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("UARTCTL_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid UARTCTL_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["command"]; !ok {
		if v, ok := os.LookupEnv("UARTCTL_COMMAND"); ok {
			c.command = v
			c.commandSet = true
		}
	}
	if _, ok := set["timeout"]; !ok {
		if v, ok := get("UARTCTL_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.timeout = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid UARTCTL_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["debug"]; !ok {
		if v, ok := get("UARTCTL_DEBUG"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.debug = true
			case "0", "false", "no", "off":
				c.debug = false
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("UARTCTL_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("UARTCTL_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["log-metrics"]; !ok {
		if v, ok := get("UARTCTL_LOG_METRICS"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.logMetrics = true
			case "0", "false", "no", "off":
				c.logMetrics = false
			}
		}
	}
	return firstErr
}
