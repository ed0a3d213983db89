// Package config defines the immutable, process-wide configuration
// snapshot that every Yocore component reads but never mutates.
//
// Real TOML-file and CLI-flag parsing are external-collaborator concerns;
// this package owns only the snapshot shape, a JSON sidecar for local runs
// and tests, and the YOLOG_* environment override layer.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
)

// StorageKind selects which storage backend capability implementation is active.
type StorageKind string

const (
	StorageDurable StorageKind = "db"
	StorageEphemeral StorageKind = "ephemeral"
)

// ParserKind names a registered session parser.
type ParserKind string

const (
	ParserClaudeCode ParserKind = "claude_code"
	ParserOpenClaw ParserKind = "openclaw"
)

// Config is the immutable configuration snapshot.
type Config struct {
	Storage StorageKind `json:"storage"`
	DataDir string `json:"data_dir"`

	Server ServerConfig `json:"server"`
	Watch []WatchConfig `json:"watch"`
	Ephemeral EphemeralConfig `json:"ephemeral"`
	AI AIConfig `json:"ai"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

// ServerConfig configures the HTTP+SSE service surface.
type ServerConfig struct {
	Port int `json:"port"`
	Host string `json:"host"`
	APIKey string `json:"api_key,omitempty"`
	MDNSEnabled bool `json:"mdns_enabled"`
	InstanceName string `json:"instance_name,omitempty"`
}

// WatchConfig names one filesystem root to watch and the parser to apply.
type WatchConfig struct {
	Path string `json:"path"`
	Parser ParserKind `json:"parser"`
	Enabled bool `json:"enabled"`
}

// EphemeralConfig bounds the in-memory storage backend.
type EphemeralConfig struct {
	MaxSessions int `json:"max_sessions"`
	MaxMessagesPerSession int `json:"max_messages_per_session"`
}

// AIConfig toggles the AI task queue's subprocess-backed features.
type AIConfig struct {
	Provider string `json:"provider,omitempty"`
	Command string `json:"command,omitempty"`
	Args []string `json:"args,omitempty"`
	MaxConcurrency int `json:"max_concurrency,omitempty"`
	TitleGeneration bool `json:"title_generation"`
	MemoryExtraction bool `json:"memory_extraction"`
	SkillsDiscovery bool `json:"skills_discovery"`
	MarkerDetection bool `json:"marker_detection"`
}

// Enabled reports whether any AI feature flag is on.
func (a AIConfig) Enabled() bool {
	return a.TitleGeneration || a.MemoryExtraction || a.SkillsDiscovery || a.MarkerDetection
}

// SchedulerConfig configures the four periodic maintenance sweeps.
type SchedulerConfig struct {
	Ranking SweepConfig `json:"ranking"`
	DuplicateCleanup SweepConfig `json:"duplicate_cleanup"`
	EmbeddingRefresh SweepConfig `json:"embedding_refresh"`
	SkillCleanup SweepConfig `json:"skill_cleanup"`
}

// SweepConfig configures one periodic maintenance sweep.
type SweepConfig struct {
	IntervalHours int `json:"interval_hours"`
	BatchSize int `json:"batch_size"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Storage: StorageDurable,
		DataDir: filepath.Join(home, ".yolog"),
		Server: ServerConfig{
			Port: 19420,
			Host: "127.0.0.1",
		},
		Ephemeral: EphemeralConfig{
			MaxSessions: 100,
			MaxMessagesPerSession: 50,
		},
		AI: AIConfig{
			Command: "claude",
			Args: []string{"-p"},
			MaxConcurrency: 3,
		},
		Scheduler: SchedulerConfig{
			Ranking: SweepConfig{IntervalHours: 6, BatchSize: 500},
			DuplicateCleanup: SweepConfig{IntervalHours: 24, BatchSize: 500, SimilarityThreshold: 0.75},
			EmbeddingRefresh: SweepConfig{IntervalHours: 12, BatchSize: 100},
			SkillCleanup: SweepConfig{IntervalHours: 24, BatchSize: 500, SimilarityThreshold: 0.80},
		},
	}
}

// Load reads baseDir/config.json, merges it over Default, then layers the
// YOLOG_* environment overrides on top. Missing file is not an error — it
// simply yields Default()+env.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadFrom reads the config file at an explicit path (rather than the
// baseDir/config.json convention Load uses) and layers the YOLOG_* env
// overrides on top. Used by the --config CLI flag.
func LoadFrom(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	base := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return nil, err
	}

	overlay := &Config{}
	if err := json.Unmarshal(data, overlay); err != nil {
		return nil, err
	}
	return Merge(base, overlay), nil
}

// Merge combines base and overlay; overlay's non-zero scalars win, slices
// from overlay replace base's wholesale (watch paths are a whole-list concern,
// not something incremental configs add to).
func Merge(base, overlay *Config) *Config {
	result := *base

	if overlay.Storage != "" {
		result.Storage = overlay.Storage
	}
	if overlay.DataDir != "" {
		result.DataDir = overlay.DataDir
	}
	if len(overlay.Watch) > 0 {
		result.Watch = overlay.Watch
	}

	if overlay.Server.Port != 0 {
		result.Server.Port = overlay.Server.Port
	}
	if overlay.Server.Host != "" {
		result.Server.Host = overlay.Server.Host
	}
	if overlay.Server.APIKey != "" {
		result.Server.APIKey = overlay.Server.APIKey
	}
	if overlay.Server.InstanceName != "" {
		result.Server.InstanceName = overlay.Server.InstanceName
	}
	result.Server.MDNSEnabled = overlay.Server.MDNSEnabled || base.Server.MDNSEnabled

	if overlay.Ephemeral.MaxSessions != 0 {
		result.Ephemeral.MaxSessions = overlay.Ephemeral.MaxSessions
	}
	if overlay.Ephemeral.MaxMessagesPerSession != 0 {
		result.Ephemeral.MaxMessagesPerSession = overlay.Ephemeral.MaxMessagesPerSession
	}

	result.AI = mergeAI(base.AI, overlay.AI)
	result.Scheduler = mergeScheduler(base.Scheduler, overlay.Scheduler)

	return &result
}

func mergeAI(base, overlay AIConfig) AIConfig {
	result := base
	if overlay.Provider != "" {
		result.Provider = overlay.Provider
	}
	if overlay.Command != "" {
		result.Command = overlay.Command
	}
	if len(overlay.Args) > 0 {
		result.Args = overlay.Args
	}
	if overlay.MaxConcurrency != 0 {
		result.MaxConcurrency = overlay.MaxConcurrency
	}
	result.TitleGeneration = overlay.TitleGeneration || base.TitleGeneration
	result.MemoryExtraction = overlay.MemoryExtraction || base.MemoryExtraction
	result.SkillsDiscovery = overlay.SkillsDiscovery || base.SkillsDiscovery
	result.MarkerDetection = overlay.MarkerDetection || base.MarkerDetection
	return result
}

func mergeScheduler(base, overlay SchedulerConfig) SchedulerConfig {
	return SchedulerConfig{
		Ranking: mergeSweep(base.Ranking, overlay.Ranking),
		DuplicateCleanup: mergeSweep(base.DuplicateCleanup, overlay.DuplicateCleanup),
		EmbeddingRefresh: mergeSweep(base.EmbeddingRefresh, overlay.EmbeddingRefresh),
		SkillCleanup: mergeSweep(base.SkillCleanup, overlay.SkillCleanup),
	}
}

func mergeSweep(base, overlay SweepConfig) SweepConfig {
	result := base
	if overlay.IntervalHours != 0 {
		result.IntervalHours = overlay.IntervalHours
	}
	if overlay.BatchSize != 0 {
		result.BatchSize = overlay.BatchSize
	}
	if overlay.SimilarityThreshold != 0 {
		result.SimilarityThreshold = overlay.SimilarityThreshold
	}
	return result
}

// ApplyEnv layers YOLOG_DATA_DIR, YOLOG_SERVER_{HOST,PORT,API_KEY} onto cfg
// in place. YOLOG_CONFIG_READONLY, if "true", is read by callers that would
// otherwise rewrite the config file (e.g. `yocore --init`); this package
// only threads the value through for them via ReadOnly().
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("YOLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("YOLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("YOLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("YOLOG_SERVER_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
}

// ReadOnly reports whether YOLOG_CONFIG_READONLY is set to "true".
func ReadOnly() bool {
	return os.Getenv("YOLOG_CONFIG_READONLY") == "true"
}

// WriteDefault writes a fresh default config.json to baseDir, creating the
// directory if needed. Used by `yocore --init`. Fails if the file already exists.
func WriteDefault(baseDir string) (string, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return "", err
	}
	path := filepath.Join(baseDir, "config.json")
	if _, err := os.Stat(path); err == nil {
		return path, os.ErrExist
	}
	data, err := json.MarshalIndent(Default(), "", " ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}
