// Package config provides strict, env-overridable YAML configuration for
// the core (§6.3): channel definitions, horizon targets, sink endpoint, and
// storage paths.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML shape.
type FileConfig struct {
	DataDir   string           `yaml:"dataDir,omitempty"`
	LogLevel  string           `yaml:"logLevel,omitempty"`
	Sink      SinkConfig       `yaml:"sink"`
	Horizon   HorizonConfig    `yaml:"horizon"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
	EPGAPI    EPGAPIConfig     `yaml:"epgApi,omitempty"`
	Cache     CacheConfig      `yaml:"cache,omitempty"`
	Tracing   TracingConfig    `yaml:"tracing,omitempty"`
	Channels  []ChannelConfig  `yaml:"channels"`
}

// TracingConfig controls OpenTelemetry trace export. Disabled by default —
// enabling it points the gRPC OTLP exporter at Endpoint.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// CacheConfig configures an optional Redis read-through cache in front of
// the asset library. Left empty, the library runs uncached.
type CacheConfig struct {
	RedisAddr string `yaml:"redisAddr,omitempty"`
	TTL       string `yaml:"ttl,omitempty"`
}

// SinkConfig describes the external AIR render sink connection.
type SinkConfig struct {
	Target  string `yaml:"target"`
	Codec   string `yaml:"codec,omitempty"` // expected "json" — the only registered CallContentSubtype
	Timeout string `yaml:"timeout,omitempty"`
}

// HorizonConfig controls the horizon manager's planning mode and depth.
type HorizonConfig struct {
	Mode                    string           `yaml:"mode"` // "legacy" | "shadow" | "authoritative"
	DefaultTargetDepthHours int              `yaml:"defaultTargetDepthHours,omitempty"`
	PerChannelTargetDepth   map[string]int   `yaml:"perChannelTargetDepthHours,omitempty"`
}

// MetricsConfig controls the Prometheus metrics HTTP listener.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// EPGAPIConfig controls the read-only EPG HTTP surface.
type EPGAPIConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// ChannelConfig is one channel's static scheduling parameters.
type ChannelConfig struct {
	ChannelID        string `yaml:"channelId"`
	ProgramFormat    string `yaml:"programFormat"`
	Timezone         string `yaml:"timezone"`
	GridBlockMinutes int    `yaml:"gridBlockMinutes"`
	TargetDepthHours int    `yaml:"targetDepthHours,omitempty"`
}

// AppConfig is the fully resolved, validated runtime configuration.
type AppConfig struct {
	DataDir  string
	LogLevel string
	Sink     SinkConfig
	Horizon  HorizonConfig
	Metrics  MetricsConfig
	EPGAPI   EPGAPIConfig
	Cache    CacheConfig
	Tracing  TracingConfig
	Channels []ChannelConfig
}

// Loader loads configuration with precedence ENV > File > Defaults, the
// same strict-parse-then-override order used for this codebase's ambient
// configuration concerns.
type Loader struct {
	configPath string
}

// NewLoader builds a Loader for the YAML file at configPath.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load resolves defaults, then the YAML file (if set), then environment
// overrides, then validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{
		DataDir:  "./data",
		LogLevel: "info",
		Sink:     SinkConfig{Codec: "json", Timeout: "5s"},
		Horizon:  HorizonConfig{Mode: "shadow", DefaultTargetDepthHours: 24},
		Metrics:  MetricsConfig{Addr: ":9090"},
		EPGAPI:   EPGAPIConfig{Addr: ":8089"},
	}

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("config: load file: %w", err)
		}
		l.mergeFile(&cfg, fileCfg)
	}

	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses path with strict YAML decoding: unknown fields are a
// hard error, since a silently-ignored typo in a channel's grid block
// minutes is exactly the kind of misconfiguration that must fail loudly
// rather than ship a subtly wrong schedule.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func (l *Loader) mergeFile(dst *AppConfig, src *FileConfig) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Sink.Target != "" {
		dst.Sink.Target = src.Sink.Target
	}
	if src.Sink.Codec != "" {
		dst.Sink.Codec = src.Sink.Codec
	}
	if src.Sink.Timeout != "" {
		dst.Sink.Timeout = src.Sink.Timeout
	}
	if src.Horizon.Mode != "" {
		dst.Horizon.Mode = src.Horizon.Mode
	}
	if src.Horizon.DefaultTargetDepthHours != 0 {
		dst.Horizon.DefaultTargetDepthHours = src.Horizon.DefaultTargetDepthHours
	}
	if len(src.Horizon.PerChannelTargetDepth) > 0 {
		dst.Horizon.PerChannelTargetDepth = src.Horizon.PerChannelTargetDepth
	}
	if src.Metrics.Enabled != nil {
		dst.Metrics.Enabled = src.Metrics.Enabled
	}
	if src.Metrics.Addr != "" {
		dst.Metrics.Addr = src.Metrics.Addr
	}
	if src.EPGAPI.Enabled != nil {
		dst.EPGAPI.Enabled = src.EPGAPI.Enabled
	}
	if src.EPGAPI.Addr != "" {
		dst.EPGAPI.Addr = src.EPGAPI.Addr
	}
	if src.Cache.RedisAddr != "" {
		dst.Cache.RedisAddr = src.Cache.RedisAddr
	}
	if src.Cache.TTL != "" {
		dst.Cache.TTL = src.Cache.TTL
	}
	if src.Tracing.Enabled {
		dst.Tracing.Enabled = true
	}
	if src.Tracing.Endpoint != "" {
		dst.Tracing.Endpoint = src.Tracing.Endpoint
	}
	if src.Tracing.SamplingRate != 0 {
		dst.Tracing.SamplingRate = src.Tracing.SamplingRate
	}
	if len(src.Channels) > 0 {
		dst.Channels = src.Channels
	}
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	if v, ok := os.LookupEnv("RETROVUE_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("RETROVUE_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("RETROVUE_SINK_TARGET"); ok {
		cfg.Sink.Target = v
	}
	if v, ok := os.LookupEnv("RETROVUE_HORIZON_MODE"); ok {
		cfg.Horizon.Mode = v
	}
	if v, ok := os.LookupEnv("RETROVUE_METRICS_ADDR"); ok {
		cfg.Metrics.Addr = v
	}
	if v, ok := os.LookupEnv("RETROVUE_HORIZON_TARGET_DEPTH_HOURS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Horizon.DefaultTargetDepthHours = n
		}
	}
	if v, ok := os.LookupEnv("RETROVUE_CACHE_REDIS_ADDR"); ok {
		cfg.Cache.RedisAddr = v
	}
}

// CacheTTL parses Cache.TTL, defaulting to 30s on an empty or invalid value.
func (c AppConfig) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SinkTimeout parses Sink.Timeout, defaulting to 5s on an empty or invalid value.
func (c AppConfig) SinkTimeout() time.Duration {
	if c.Sink.Timeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.Sink.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
