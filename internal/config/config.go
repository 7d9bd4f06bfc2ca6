// Package config builds the single Config object every component receives.
// Values come from defaults, then an optional TOML file (plus an
// environment-specific overlay), then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigFile = "echoframe.toml"
	DefaultGroqURL    = "https://api.groq.com/openai/v1"
	DefaultTavusURL   = "https://tavusapi.com/v2/conversations"
)

type LLM struct {
	APIKey       string        `toml:"api_key"`
	BaseURL      string        `toml:"base_url"`
	Model        string        `toml:"model"`
	PodcastModel string        `toml:"podcast_model"`
	Temperature  float32       `toml:"temperature"`
	MaxTokens    int           `toml:"max_tokens"`
	Timeout      time.Duration `toml:"timeout"`
}

// Visual holds the chunk planner and rate limiter knobs.
type Visual struct {
	ContextWindow       int `toml:"context_window"`
	MaxOutputTokens     int `toml:"max_output_tokens"`
	TokensPerSegment    int `toml:"tokens_per_segment"`
	PromptOverhead      int `toml:"prompt_overhead"`
	MaxSegmentsPerChunk int `toml:"max_segments_per_chunk"`
	MismatchTolerance   int `toml:"mismatch_tolerance"`
	TokensPerMinute     int `toml:"tokens_per_minute"`
	// ChunkSize forces a fixed number of segments per request; zero plans balanced chunks.
	ChunkSize int `toml:"chunk_size"`
}

type Speech struct {
	Model    string `toml:"model"`
	Voice    string `toml:"voice"`
	Format   string `toml:"format"`
	MaxChars int    `toml:"max_chars"`
	FFmpeg   bool   `toml:"ffmpeg"`
}

type Conversation struct {
	APIKey    string `toml:"api_key"`
	URL       string `toml:"url"`
	PersonaID string `toml:"persona_id"`
	ReplicaID string `toml:"replica_id"`
}

type Storage struct {
	OutputDir   string `toml:"output_dir"`
	// DataDir is where the podcast command reads analysis JSON by default.
	DataDir     string `toml:"data_dir"`
	PodcastDir  string `toml:"podcast_dir"`
	CleanOutput bool   `toml:"clean_output"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Prefix    string `toml:"s3_prefix"`
	S3Endpoint  string `toml:"s3_endpoint"`
	AWSRegion   string `toml:"aws_region"`
}

type Server struct {
	Port              string   `toml:"port"`
	CORSOrigins       []string `toml:"cors_origins"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

type HTTP struct {
	Retries int           `toml:"retries"`
	Timeout time.Duration `toml:"timeout"`
}

type Config struct {
	Environment  string       `toml:"environment"`
	LogLevel     string       `toml:"log_level"`
	LLM          LLM          `toml:"llm"`
	Visual       Visual       `toml:"visual"`
	Speech       Speech       `toml:"speech"`
	Conversation Conversation `toml:"conversation"`
	Storage      Storage      `toml:"storage"`
	Server       Server       `toml:"server"`
	HTTP         HTTP         `toml:"http"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LLM: LLM{
			BaseURL:      DefaultGroqURL,
			Model:        "meta-llama/llama-4-maverick-17b-128e-instruct",
			PodcastModel: "meta-llama/llama-4-scout-17b-16e-instruct",
			Temperature:  0.2,
			MaxTokens:    4000,
			Timeout:      120 * time.Second,
		},
		Visual: Visual{
			ContextWindow:       128000,
			MaxOutputTokens:     8192,
			TokensPerSegment:    40,
			PromptOverhead:      1000,
			MaxSegmentsPerChunk: 50,
			MismatchTolerance:   3,
			TokensPerMinute:     280000,
		},
		Speech: Speech{
			Model:    "playai-tts",
			Voice:    "Fritz-PlayAI",
			Format:   "wav",
			MaxChars: 9999,
		},
		Conversation: Conversation{
			URL: DefaultTavusURL,
		},
		Storage: Storage{
			OutputDir:   "data/output",
			DataDir:     "data",
			PodcastDir:  "podcasts",
			CleanOutput: true,
		},
		Server: Server{
			Port:              "8080",
			CORSOrigins:       []string{"*"},
			RequestsPerSecond: 5,
			Burst:             10,
		},
		HTTP: HTTP{
			Retries: 0,
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads path (if it exists) and its ENVIRONMENT overlay, then applies
// environment variables. An empty path means DefaultConfigFile.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultConfigFile
	}
	if err := decodeIfExists(path, cfg); err != nil {
		return nil, err
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = cfg.Environment
	}
	if overlay := overlayPath(path, env); overlay != "" {
		if err := decodeIfExists(overlay, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayPath(path, env string) string {
	if env == "" || !strings.HasSuffix(path, ".toml") {
		return ""
	}
	return strings.TrimSuffix(path, ".toml") + "." + env + ".toml"
}

func decodeIfExists(path string, cfg *Config) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("ENVIRONMENT", &cfg.Environment)
	str("LOG_LEVEL", &cfg.LogLevel)

	str("GROQ_API_KEY", &cfg.LLM.APIKey)
	str("GROQ_BASE_URL", &cfg.LLM.BaseURL)
	str("GROQ_MODEL", &cfg.LLM.Model)
	str("PODCAST_MODEL", &cfg.LLM.PodcastModel)
	integer("GROQ_MAX_TOKENS", &cfg.LLM.MaxTokens)
	duration("GROQ_TIMEOUT", &cfg.LLM.Timeout)
	if v := os.Getenv("GROQ_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("GROQ_TEMPERATURE: %w", err))
		} else {
			cfg.LLM.Temperature = float32(f)
		}
	}

	integer("CONTEXT_WINDOW", &cfg.Visual.ContextWindow)
	integer("MAX_OUTPUT_TOKENS", &cfg.Visual.MaxOutputTokens)
	integer("TOKENS_PER_SEGMENT", &cfg.Visual.TokensPerSegment)
	integer("PROMPT_OVERHEAD", &cfg.Visual.PromptOverhead)
	integer("MAX_SEGMENTS_PER_CHUNK", &cfg.Visual.MaxSegmentsPerChunk)
	integer("MISMATCH_TOLERANCE", &cfg.Visual.MismatchTolerance)
	integer("TOKENS_PER_MINUTE", &cfg.Visual.TokensPerMinute)
	integer("CHUNK_SIZE", &cfg.Visual.ChunkSize)

	str("TTS_MODEL", &cfg.Speech.Model)
	str("TTS_VOICE", &cfg.Speech.Voice)
	str("TTS_FORMAT", &cfg.Speech.Format)
	integer("TTS_MAX_CHARS", &cfg.Speech.MaxChars)
	boolean("TTS_FFMPEG", &cfg.Speech.FFmpeg)

	str("TAVUS_API_KEY", &cfg.Conversation.APIKey)
	str("TAVUS_API_URL", &cfg.Conversation.URL)
	str("PERSONA_ID", &cfg.Conversation.PersonaID)
	str("REPLICA_ID", &cfg.Conversation.ReplicaID)

	str("OUTPUT_DIR", &cfg.Storage.OutputDir)
	str("DATA_DIR", &cfg.Storage.DataDir)
	str("PODCAST_DIR", &cfg.Storage.PodcastDir)
	boolean("CLEAN_OUTPUT", &cfg.Storage.CleanOutput)
	str("S3_BUCKET", &cfg.Storage.S3Bucket)
	str("S3_PREFIX", &cfg.Storage.S3Prefix)
	str("S3_ENDPOINT", &cfg.Storage.S3Endpoint)
	str("AWS_REGION", &cfg.Storage.AWSRegion)

	str("PORT", &cfg.Server.Port)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	float("REQUESTS_PER_SECOND", &cfg.Server.RequestsPerSecond)
	integer("REQUESTS_BURST", &cfg.Server.Burst)

	integer("HTTP_RETRIES", &cfg.HTTP.Retries)
	duration("HTTP_TIMEOUT", &cfg.HTTP.Timeout)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PodcastInput returns dir, or DataDir when dir is empty.
func (s Storage) PodcastInput(dir string) string {
	if dir != "" {
		return dir
	}
	return s.DataDir
}

// RequireLLM reports whether the language-model credentials are present.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return errors.New("GROQ_API_KEY not set")
	}
	return nil
}

// RequireConversation reports whether the conversation platform settings are present.
func (c *Config) RequireConversation() error {
	var missing []string
	if c.Conversation.APIKey == "" {
		missing = append(missing, "TAVUS_API_KEY")
	}
	if c.Conversation.URL == "" {
		missing = append(missing, "TAVUS_API_URL")
	}
	if c.Conversation.PersonaID == "" {
		missing = append(missing, "PERSONA_ID")
	}
	if c.Conversation.ReplicaID == "" {
		missing = append(missing, "REPLICA_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("conversation platform not configured: %s not set", strings.Join(missing, ", "))
	}
	return nil
}
