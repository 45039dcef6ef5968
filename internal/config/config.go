package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/bgrun/internal/logger"
	"github.com/loykin/bgrun/internal/store"
	"github.com/spf13/viper"
)

// FileConfig represents the top-level TOML structure:
//
//	base_dir = "/var/lib/bgrun"
//	probe_timeout = "500ms"
//	max_log_scan_bytes = 262144
//	env = ["KEY=VALUE"]
//	env_files = ["/etc/bgrun/env"]
//	use_os_env = true
//
//	[store]
//	type = "fs"            # fs | memory | sqlite | postgres
//
//	[history]
//	sinks = ["sqlite:///var/lib/bgrun/history.db"]
//
//	[server]
//	listen = ":8943"
//	base_path = "/api"
//	metrics = true
//
//	[log]
//	level = "info"
//	file = "/var/log/bgrun/bgrun.log"
type FileConfig struct {
	BaseDir         string        `toml:"base_dir" mapstructure:"base_dir"`
	ProbeTimeout    time.Duration `toml:"probe_timeout" mapstructure:"probe_timeout"`
	MaxLogScanBytes int64         `toml:"max_log_scan_bytes" mapstructure:"max_log_scan_bytes"`
	Env             []string      `toml:"env" mapstructure:"env"`
	EnvFiles        []string      `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv        bool          `toml:"use_os_env" mapstructure:"use_os_env"`
	Store           store.Config  `toml:"store" mapstructure:"store"`
	History         HistoryConfig `toml:"history" mapstructure:"history"`
	Server          ServerConfig  `toml:"server" mapstructure:"server"`
	Log             logger.Config `toml:"log" mapstructure:"log"`
}

// HistoryConfig lists event sinks as DSNs. Supported schemes:
// sqlite://, postgres://, clickhouse://, or a bare file path (sqlite).
type HistoryConfig struct {
	Sinks []string `toml:"sinks" mapstructure:"sinks"`
}

// ServerConfig describes the embedded HTTP API. Metrics additionally
// mounts the Prometheus handler at /metrics on the same listener.
type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
	Metrics  bool   `toml:"metrics" mapstructure:"metrics"`
}

const (
	DefaultListen = ":8943"
)

// DefaultBaseDir is the per-user artifact root used when no base_dir is
// configured.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bgrun")
	}
	return filepath.Join(home, ".bgrun")
}

// Load reads a TOML config file and applies defaults. path may be empty,
// in which case a pure-defaults config is returned.
func Load(path string) (FileConfig, error) {
	var fc FileConfig
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return FileConfig{}, err
		}
		if err := v.Unmarshal(&fc); err != nil {
			return FileConfig{}, err
		}
	}
	fc.applyDefaults()
	if err := fc.validate(); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

func (fc *FileConfig) applyDefaults() {
	if fc.BaseDir == "" {
		fc.BaseDir = DefaultBaseDir()
	}
	if fc.Store.BaseDir == "" {
		fc.Store.BaseDir = fc.BaseDir
	}
	if fc.Server.Listen == "" {
		fc.Server.Listen = DefaultListen
	}
}

func (fc *FileConfig) validate() error {
	if !filepath.IsAbs(fc.BaseDir) {
		return fmt.Errorf("base_dir must be an absolute path: %s", fc.BaseDir)
	}
	if fc.ProbeTimeout < 0 {
		return fmt.Errorf("probe_timeout must not be negative")
	}
	if fc.MaxLogScanBytes < 0 {
		return fmt.Errorf("max_log_scan_bytes must not be negative")
	}
	for _, dsn := range fc.History.Sinks {
		if strings.TrimSpace(dsn) == "" {
			return fmt.Errorf("history.sinks entries must not be empty")
		}
	}
	return nil
}

// GlobalEnv merges the configured environment. Precedence: OS env (when
// use_os_env) provides the base; env_files apply next in order; the
// top-level env list overrides last.
func (fc *FileConfig) GlobalEnv() ([]string, error) {
	m := make(map[string]string)
	if fc.UseOSEnv {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				m[kv[:i]] = kv[i+1:]
			}
		}
	}
	for _, p := range fc.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	for _, kv := range fc.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// LoadEnvFile parses a simple .env file and returns a slice of "KEY=VALUE" entries.
func LoadEnvFile(path string) ([]string, error) {
	m, err := loadEnvFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// loadEnvFile parses a simple .env file with KEY=VALUE lines (no export, no quotes). Lines starting with # are ignored.
func loadEnvFile(path string) (map[string]string, error) {
	// Mitigate G304: sanitize user-provided path by cleaning it before use.
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			k := strings.TrimSpace(line[:i])
			v := strings.TrimSpace(line[i+1:])
			m[k] = v
		}
	}
	return m, nil
}
