package config

import (
	"os"
	"strconv"
	"time"
)

// LockoutConfig controls the login-failure tracker. Threshold is the
// number of failed attempts after which logins for that user id are
// rejected outright. Window is how long failures count against the
// user: the counter decays Window after the most recent failure and is
// cleared immediately on a successful login.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
	Prefix    string
}

// LoadLockoutConfig reads environment variables to build a LockoutConfig.
// Defaults match the observed production policy: five strikes, fifteen
// minute sliding window.
func LoadLockoutConfig() LockoutConfig {
	cfg := LockoutConfig{
		Threshold: envInt("LOCKOUT_THRESHOLD", 5),
		Window:    envDur("LOCKOUT_WINDOW", 15*time.Minute),
		Prefix:    envStr("LOCKOUT_PREFIX", "lockout"),
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
