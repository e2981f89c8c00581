package model

import (
	"strconv"
	"strings"
)

// Defaults for the cluster-assignment decision. The weights order is
// embedding, llm, time, geo and they must sum to 1.
var DefaultWeights = [4]float64{0.35, 0.35, 0.15, 0.15}

// DefaultThreshold is the minimum combined score to merge a report into an
// existing incident. Higher keeps distinct incidents separate.
const DefaultThreshold = 0.65

// Config holds the full sitrep configuration
type Config struct {
	LogLevel    string            `yaml:"log_level" mapstructure:"log_level"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cluster     ClusterConfig     `yaml:"cluster" mapstructure:"cluster"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LLMConfig configures the OpenAI-backed external signals. An empty APIKey
// disables all of them; every consumer degrades to its neutral fallback.
type LLMConfig struct {
	APIKey            string  `yaml:"-" mapstructure:"-"` // From OPENAI_API_KEY, never written to config files
	ChatModel         string  `yaml:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel    string  `yaml:"embedding_model" mapstructure:"embedding_model"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	ScoringWorkers int `yaml:"scoring_workers" mapstructure:"scoring_workers"` // Parallel candidate scoring per assignment call
	ReplayWorkers  int `yaml:"replay_workers" mapstructure:"replay_workers"`  // Parallel chunks in replay mode
}

// ClusterConfig is the tunable surface of the cluster-assignment decision
type ClusterConfig struct {
	Weights      []float64 `yaml:"weights" mapstructure:"weights"`                 // embedding, llm, time, geo
	Threshold    float64   `yaml:"threshold" mapstructure:"threshold"`               // Min combined score to merge
	MinEmbedding *float64  `yaml:"min_embedding,omitempty" mapstructure:"min_embedding"` // Optional floor on embedding similarity
	MinLLM       *float64  `yaml:"min_llm,omitempty" mapstructure:"min_llm"`       // Optional floor on LLM same-incident score
}

// ResolvedWeights returns the configured weights when they are 4 values
// summing to 1 within 0.01 tolerance, else the defaults.
func (c ClusterConfig) ResolvedWeights() [4]float64 {
	if len(c.Weights) != 4 {
		return DefaultWeights
	}
	sum := 0.0
	for _, w := range c.Weights {
		sum += w
	}
	if sum < 0.99 || sum > 1.01 {
		return DefaultWeights
	}
	return [4]float64{c.Weights[0], c.Weights[1], c.Weights[2], c.Weights[3]}
}

// ResolvedThreshold returns the configured threshold clamped to [0, 1], or
// the default when unset.
func (c ClusterConfig) ResolvedThreshold() float64 {
	if c.Threshold == 0 {
		return DefaultThreshold
	}
	return Clamp01(c.Threshold)
}

// ParseWeights parses a comma-separated weight list ("0.4,0.4,0.1,0.1").
// Returns nil unless exactly 4 numbers summing to 1 within tolerance.
func ParseWeights(s string) []float64 {
	parts := strings.Split(s, ",")
	var out []float64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	if len(out) != 4 {
		return nil
	}
	sum := 0.0
	for _, w := range out {
		sum += w
	}
	if sum < 0.99 || sum > 1.01 {
		return nil
	}
	return out
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr: ":8080",
		},
		LLM: LLMConfig{
			ChatModel:         "gpt-4o-mini",
			EmbeddingModel:    "text-embedding-3-small",
			TimeoutSeconds:    30,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Cluster: ClusterConfig{
			Threshold: DefaultThreshold,
		},
		Concurrency: ConcurrencyConfig{
			ScoringWorkers: 4,
			ReplayWorkers:  2,
		},
	}
}
