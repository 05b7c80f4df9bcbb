// Package config loads the client configuration from YAML with PLAZA_*
// environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
type Config struct {
	Endpoints         []string
	CallTimeout       time.Duration
	BroadcastDeadline time.Duration
	ProbeRetries      int
	SigningMode       string
	ChainID           string
	SessionPath       string
	DraftsPath        string
	SubmitPerSecond   float64
	SubmitBurst       int
	MetricsAddr       string
}

type fileConfig struct {
	Ledger struct {
		Endpoints         []string      `yaml:"endpoints"`
		CallTimeout       time.Duration `yaml:"callTimeout"`
		BroadcastDeadline time.Duration `yaml:"broadcastDeadline"`
		ProbeRetries      int           `yaml:"probeRetries"`
		ChainID           string        `yaml:"chainId"`
	} `yaml:"ledger"`
	Signing struct {
		Mode string `yaml:"mode"`
	} `yaml:"signing"`
	Session struct {
		Path       string `yaml:"path"`
		DraftsPath string `yaml:"draftsPath"`
	} `yaml:"session"`
	Limits struct {
		SubmitPerSecond float64 `yaml:"submitPerSecond"`
		SubmitBurst     int     `yaml:"submitBurst"`
	} `yaml:"limits"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

func Default() Config {
	return Config{
		Endpoints: []string{
			"https://api.hive.blog",
			"https://api.deathwing.me",
			"https://anyx.io",
		},
		CallTimeout:       10 * time.Second,
		BroadcastDeadline: 30 * time.Second,
		ProbeRetries:      3,
		SigningMode:       "agent",
		SubmitPerSecond:   1,
		SubmitBurst:       3,
	}
}

// LoadFromPath reads the YAML file at configPath (falling back to the
// conventional locations when empty), merges it over the defaults and
// applies environment overrides last.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/plaza.yaml",
			"plaza.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merged := cfg
		merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func merge(dst *Config, src fileConfig) {
	if len(src.Ledger.Endpoints) > 0 {
		dst.Endpoints = src.Ledger.Endpoints
	}
	if src.Ledger.CallTimeout != 0 {
		dst.CallTimeout = src.Ledger.CallTimeout
	}
	if src.Ledger.BroadcastDeadline != 0 {
		dst.BroadcastDeadline = src.Ledger.BroadcastDeadline
	}
	if src.Ledger.ProbeRetries != 0 {
		dst.ProbeRetries = src.Ledger.ProbeRetries
	}
	if src.Ledger.ChainID != "" {
		dst.ChainID = src.Ledger.ChainID
	}
	if src.Signing.Mode != "" {
		dst.SigningMode = src.Signing.Mode
	}
	if src.Session.Path != "" {
		dst.SessionPath = src.Session.Path
	}
	if src.Session.DraftsPath != "" {
		dst.DraftsPath = src.Session.DraftsPath
	}
	if src.Limits.SubmitPerSecond != 0 {
		dst.SubmitPerSecond = src.Limits.SubmitPerSecond
	}
	if src.Limits.SubmitBurst != 0 {
		dst.SubmitBurst = src.Limits.SubmitBurst
	}
	if src.Metrics.Addr != "" {
		dst.MetricsAddr = src.Metrics.Addr
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := envCSV("PLAZA_ENDPOINTS"); v != nil {
		cfg.Endpoints = v
	}
	if v := envDuration("PLAZA_CALL_TIMEOUT"); v != 0 {
		cfg.CallTimeout = v
	}
	if v := envDuration("PLAZA_BROADCAST_DEADLINE"); v != 0 {
		cfg.BroadcastDeadline = v
	}
	if v := envString("PLAZA_SIGNING_MODE"); v != "" {
		cfg.SigningMode = v
	}
	if v := envString("PLAZA_CHAIN_ID"); v != "" {
		cfg.ChainID = v
	}
	if v := envString("PLAZA_SESSION_PATH"); v != "" {
		cfg.SessionPath = v
	}
	if v := envString("PLAZA_DRAFTS_PATH"); v != "" {
		cfg.DraftsPath = v
	}
	if v := envString("PLAZA_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envFloat("PLAZA_SUBMIT_PER_SECOND"); v > 0 {
		cfg.SubmitPerSecond = v
	}
	if v := envInt("PLAZA_SUBMIT_BURST"); v > 0 {
		cfg.SubmitBurst = v
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envCSV(key string) []string {
	raw := envString(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func envDuration(key string) time.Duration {
	raw := envString(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

func envInt(key string) int {
	raw := envString(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func envFloat(key string) float64 {
	raw := envString(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
