// Package config provides configuration loading and validation for docqa.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `json:"server"             mapstructure:"server"`
	Review     ReviewConfig     `json:"review"             mapstructure:"review"`
	TGI        TGIConfig        `json:"tgi"                mapstructure:"tgi"`
	Fallback   FallbackConfig   `json:"fallback"           mapstructure:"fallback"`
	Linter     LinterConfig     `json:"linter"             mapstructure:"linter"`
	Generation GenerationConfig `json:"generation"         mapstructure:"generation"`
	AuditDB    string           `json:"audit_db,omitempty" mapstructure:"audit_db"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string   `json:"host"                   mapstructure:"host"`
	Port        int      `json:"port"                   mapstructure:"port"`
	CORSOrigins []string `json:"cors_origins,omitempty" mapstructure:"cors_origins"`
}

// ReviewConfig controls the retry loop and the code-edit policy.
type ReviewConfig struct {
	// RetriesOnMalformed is the number of extra attempts after a malformed
	// generation; total attempts is this plus one.
	RetriesOnMalformed int `json:"retries_on_malformed" mapstructure:"retries_on_malformed"`
	// CodeEditThresholdRatio: when at least this fraction of document bytes
	// sits inside fenced code, edits inside fences are allowed.
	CodeEditThresholdRatio float64 `json:"code_edit_threshold_ratio" mapstructure:"code_edit_threshold_ratio"`
}

// TGIConfig locates the primary generation backend.
type TGIConfig struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout"  mapstructure:"timeout"`
}

// FallbackConfig locates the OpenRouter fallback backend.
type FallbackConfig struct {
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`
	APIKey  string `json:"api_key,omitempty"  mapstructure:"api_key"`
	Model   string `json:"model"              mapstructure:"model"`
}

// LinterConfig configures the advisory linter collaborator.
type LinterConfig struct {
	Enabled  bool   `json:"enabled"  mapstructure:"enabled"`
	BaseURL  string `json:"base_url" mapstructure:"base_url"`
	Language string `json:"language" mapstructure:"language"`
}

// GenerationConfig carries generation parameters; the review core does not
// interpret them.
type GenerationConfig struct {
	MaxNewTokens  int      `json:"max_new_tokens" mapstructure:"max_new_tokens"`
	Temperature   float64  `json:"temperature"    mapstructure:"temperature"`
	TopP          float64  `json:"top_p"          mapstructure:"top_p"`
	StopSequences []string `json:"stop_sequences" mapstructure:"stop_sequences"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("review.retries_on_malformed", 1)
	v.SetDefault("review.code_edit_threshold_ratio", 0.15)
	v.SetDefault("tgi.base_url", "http://tgi:80")
	v.SetDefault("tgi.timeout", "60s")
	v.SetDefault("fallback.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("fallback.model", "meta-llama/llama-3-70b-instruct")
	v.SetDefault("linter.enabled", true)
	v.SetDefault("linter.base_url", "http://languagetool:8010")
	v.SetDefault("linter.language", "en-US")
	v.SetDefault("generation.max_new_tokens", 2048)
	v.SetDefault("generation.temperature", 0.0)
	v.SetDefault("generation.top_p", 0.9)
	v.SetDefault("generation.stop_sequences", []string{"</json>"})
}

// Load reads configuration from an optional YAML file and DOCQA_* environment
// variables, validates the raw settings against the embedded JSON schema and
// decodes them into Config.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := ValidateSettings(v.AllSettings()); err != nil {
		return Config{}, err
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Review.RetriesOnMalformed < 0 {
		return Config{}, fmt.Errorf("review.retries_on_malformed must be >= 0")
	}
	if cfg.Review.CodeEditThresholdRatio < 0 || cfg.Review.CodeEditThresholdRatio > 1 {
		return Config{}, fmt.Errorf("review.code_edit_threshold_ratio must be in [0, 1]")
	}
	return cfg, nil
}
