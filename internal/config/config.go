package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultFolderTemplate names session folders. Slashes create nested folders.
// Available placeholders: {{.Year}}, {{.Month}}, {{.Day}}, {{.Hour}}, {{.Minute}}, {{.Second}}
const DefaultFolderTemplate = "{{.Year}}-{{.Month}}-{{.Day}}/{{.Hour}}-{{.Minute}}-{{.Second}}"

// DefaultQuickPrefix is prepended to every quick-mode paste.
const DefaultQuickPrefix = "(voice transcription, may contain errors) "

// Engine names accepted by the engine option.
const (
	EngineWhisperCPP = "whispercpp"
	EngineServer     = "server"
	EngineVosk       = "vosk"
)

// Config holds configurable parameters.
type Config struct {
	RecordingsDir  string `toml:"recordings_dir"`
	FolderTemplate string `toml:"folder_template"`
	Channels       int    `toml:"channels"`
	SamplingRate   int    `toml:"sampling_rate"`
	StartCue       bool   `toml:"start_cue"`
	LevelMeter     bool   `toml:"level_meter"`

	Engine      string `toml:"engine"`
	ModelSize   string `toml:"model_size"`
	ComputeType string `toml:"compute_type"`
	ModelsDir   string `toml:"models_dir"`
	BeamSize    int    `toml:"beam_size"`
	BestOf      int    `toml:"best_of"`
	Language    string `toml:"language"`

	APIEndpoint    string  `toml:"api_endpoint"`
	Token          string  `toml:"token"`
	TextPath       string  `toml:"text_path"`
	VoskURL        string  `toml:"vosk_url"`
	RequestTimeout int     `toml:"request_timeout"`
	MaxRetry       int     `toml:"max_retry"`
	RetryBaseDelay float64 `toml:"retry_base_delay"`
	EnableHTTP2    bool    `toml:"enable_http2"`
	VerifySSL      bool    `toml:"verify_ssl"`

	LLMURL     string `toml:"llm_url"`
	LLMModel   string `toml:"llm_model"`
	LLMTimeout int    `toml:"llm_timeout"`

	ChatURL       string  `toml:"chat_url"`
	ChatWindow    string  `toml:"chat_window"`
	InputTemplate string  `toml:"input_template"`
	LocateTimeout float64 `toml:"locate_timeout"`
	NewTabWait    float64 `toml:"new_tab_wait"`
	QuickPrefix   string  `toml:"quick_prefix"`
	TargetWindow  string  `toml:"target_window"`

	Notification bool `toml:"notification"`
	RecordDebug  bool `toml:"record_debug"`
	HotkeyDebug  bool `toml:"hotkey_debug"`
	UploadDebug  bool `toml:"upload_debug"`
	LLMDebug     bool `toml:"llm_debug"`
	FFmpegDebug  bool `toml:"ffmpeg_debug"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RecordingsDir:  "recordings",
		FolderTemplate: DefaultFolderTemplate,
		Channels:       1,
		SamplingRate:   16000,
		StartCue:       true,
		LevelMeter:     true,

		Engine:      EngineWhisperCPP,
		ModelSize:   "medium",
		ComputeType: "float16",
		ModelsDir:   "models",
		BeamSize:    5,
		BestOf:      5,
		Language:    "",

		APIEndpoint:    "http://127.0.0.1:8080/inference",
		TextPath:       "text",
		VoskURL:        "ws://127.0.0.1:2700",
		RequestTimeout: 120,
		MaxRetry:       1,
		RetryBaseDelay: 0.5,
		EnableHTTP2:    false,
		VerifySSL:      true,

		LLMURL:     "http://localhost:11434/api/generate",
		LLMModel:   "gemma:2b",
		LLMTimeout: 120,

		ChatURL:       "https://chatgpt.com/",
		ChatWindow:    "ChatGPT",
		InputTemplate: "",
		LocateTimeout: 5,
		NewTabWait:    4,
		QuickPrefix:   DefaultQuickPrefix,

		Notification: false,
		HotkeyDebug:  false,
	}
}

// Load builds the config: defaults, then the TOML file, then environment
// variables (a .env file in the working directory is read first).
// An empty path falls back to $XDG_CONFIG_HOME/voicepipe/config.toml when it exists.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	if path == "" {
		path = FilePath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.RecordingsDir = expandTilde(cfg.RecordingsDir)
	cfg.ModelsDir = expandTilde(cfg.ModelsDir)
	return cfg, nil
}

// SaveDefault writes a default config TOML to the provided path.
func SaveDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(DefaultConfig())
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid channels: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SamplingRate <= 0 {
		return fmt.Errorf("invalid sampling_rate: %d (must be > 0)", cfg.SamplingRate)
	}
	if cfg.BeamSize < 1 {
		return fmt.Errorf("invalid beam_size: %d (must be >= 1)", cfg.BeamSize)
	}
	if cfg.BestOf < 1 {
		return fmt.Errorf("invalid best_of: %d (must be >= 1)", cfg.BestOf)
	}
	switch cfg.Engine {
	case EngineWhisperCPP, EngineServer, EngineVosk:
	default:
		return fmt.Errorf("invalid engine: %s (allowed: whispercpp, server, vosk)", cfg.Engine)
	}
	switch cfg.ComputeType {
	case "float16", "int8":
	default:
		return fmt.Errorf("invalid compute_type: %s (allowed: float16, int8)", cfg.ComputeType)
	}
	if cfg.Engine == EngineServer && cfg.APIEndpoint == "" {
		return fmt.Errorf("api_endpoint is required for the server engine")
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid max_retry: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.LocateTimeout < 0 {
		return fmt.Errorf("invalid locate_timeout: %g (must be >= 0)", cfg.LocateTimeout)
	}
	if cfg.NewTabWait < 0 {
		return fmt.Errorf("invalid new_tab_wait: %g (must be >= 0)", cfg.NewTabWait)
	}
	return nil
}

// InitRecordingsDir creates the recordings directory and makes it absolute.
func InitRecordingsDir(cfg *Config) error {
	abs, err := filepath.Abs(cfg.RecordingsDir)
	if err != nil {
		return fmt.Errorf("recordings_dir path invalid '%s': %w", cfg.RecordingsDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("cannot create recordings_dir '%s': %w", abs, err)
	}
	cfg.RecordingsDir = abs
	return nil
}

func (c Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c Config) LLMTimeoutDuration() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

func (c Config) LocateTimeoutDuration() time.Duration {
	return seconds(c.LocateTimeout)
}

func (c Config) NewTabWaitDuration() time.Duration {
	return seconds(c.NewTabWait)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func applyEnvOverrides(cfg *Config) {
	str := map[string]*string{
		"VOICEPIPE_RECORDINGS_DIR": &cfg.RecordingsDir,
		"VOICEPIPE_ENGINE":         &cfg.Engine,
		"VOICEPIPE_MODEL_SIZE":     &cfg.ModelSize,
		"VOICEPIPE_MODELS_DIR":     &cfg.ModelsDir,
		"VOICEPIPE_API_ENDPOINT":   &cfg.APIEndpoint,
		"VOICEPIPE_TOKEN":          &cfg.Token,
		"VOICEPIPE_VOSK_URL":       &cfg.VoskURL,
		"VOICEPIPE_LLM_URL":        &cfg.LLMURL,
		"VOICEPIPE_LLM_MODEL":      &cfg.LLMModel,
		"VOICEPIPE_TARGET_WINDOW":  &cfg.TargetWindow,
	}
	for key, target := range str {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

// FilePath returns the default config file location if that file exists.
func FilePath() string {
	path := DefaultFilePath()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// DefaultFilePath returns where the config file lives, whether or not it exists.
func DefaultFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "voicepipe")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "voicepipe")
	} else {
		return ""
	}
	return filepath.Join(configDir, "config.toml")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
