package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported streaming wire dialects
const (
	DialectGeneric    = "generic"
	DialectAssemblyAI = "assemblyai"
)

// MaxFrameDuration keeps the volume meter at 10 Hz or faster
const MaxFrameDuration = 100 * time.Millisecond

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Log       LogConfig       `envconfig:"LOG"`
	Audio     AudioConfig     `envconfig:"AUDIO"`
	Streaming StreamingConfig `envconfig:"STREAMING"`
	Groq      GroqConfig      `envconfig:"GROQ"`
	Session   SessionConfig   `envconfig:"SESSION"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
}

// AudioConfig holds microphone capture configuration
type AudioConfig struct {
	FFmpegCommand string        `envconfig:"FFMPEG_COMMAND" default:"ffmpeg"`
	InputFormat   string        `envconfig:"INPUT_FORMAT" default:"pulse"`
	InputDevice   string        `envconfig:"INPUT_DEVICE" default:"default"`
	SampleRate    int           `envconfig:"SAMPLE_RATE" default:"16000"`
	Channels      int           `envconfig:"CHANNELS" default:"1"`
	FrameDuration time.Duration `envconfig:"FRAME_DURATION" default:"100ms"`
	StartupGrace  time.Duration `envconfig:"STARTUP_GRACE" default:"250ms"`
	StopTimeout   time.Duration `envconfig:"STOP_TIMEOUT" default:"1200ms"`
	ChunkBuffer   int           `envconfig:"CHUNK_BUFFER" default:"32"`
}

// StreamingConfig holds streaming speech backend configuration
type StreamingConfig struct {
	URL              string        `envconfig:"URL" default:"wss://streaming.assemblyai.com/v3/ws"`
	APIKey           string        `envconfig:"API_KEY"`
	Dialect          string        `envconfig:"DIALECT" default:"assemblyai"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"5s"`
	SendBuffer       int           `envconfig:"SEND_BUFFER" default:"64"`
	EventBuffer      int           `envconfig:"EVENT_BUFFER" default:"256"`
}

// GroqConfig holds summarization LLM configuration
type GroqConfig struct {
	APIKey      string        `envconfig:"API_KEY"`
	BaseURL     string        `envconfig:"API_URL" default:"https://api.groq.com"`
	Model       string        `envconfig:"MODEL" default:"llama-3.3-70b-versatile"`
	Temperature float64       `envconfig:"TEMPERATURE" default:"0.2"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" default:"2048"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`
	Language    string        `envconfig:"LANGUAGE" default:"English"`
}

// SessionConfig holds controller timeouts
type SessionConfig struct {
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	MinutesTimeout time.Duration `envconfig:"MINUTES_TIMEOUT" default:"60s"`
	ObserverBuffer int           `envconfig:"OBSERVER_BUFFER" default:"64"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	return FromEnv()
}

// FromEnv builds a validated Config from the current process environment
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Streaming.URL == "" {
		return fmt.Errorf("STREAMING_URL is required")
	}
	switch c.Streaming.Dialect {
	case DialectGeneric, DialectAssemblyAI:
	default:
		return fmt.Errorf("STREAMING_DIALECT must be %q or %q, got %q", DialectGeneric, DialectAssemblyAI, c.Streaming.Dialect)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("AUDIO_CHANNELS must be 1 or 2")
	}
	if c.Audio.FrameDuration <= 0 || c.Audio.FrameDuration > MaxFrameDuration {
		return fmt.Errorf("AUDIO_FRAME_DURATION must be in (0, %s]", MaxFrameDuration)
	}
	if c.Session.ConnectTimeout <= 0 {
		return fmt.Errorf("SESSION_CONNECT_TIMEOUT must be positive")
	}
	if c.Session.MinutesTimeout <= 0 {
		return fmt.Errorf("SESSION_MINUTES_TIMEOUT must be positive")
	}
	return nil
}

// MissingCredentials lists required API keys that are not set
func (c *Config) MissingCredentials() []string {
	var missing []string
	if strings.TrimSpace(c.Streaming.APIKey) == "" {
		missing = append(missing, "STREAMING_API_KEY")
	}
	if strings.TrimSpace(c.Groq.APIKey) == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	return missing
}

// GetServerAddr returns the HTTP listen address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// FrameBytes returns the size in bytes of one s16le capture frame
func (a AudioConfig) FrameBytes() int {
	samples := int(int64(a.SampleRate) * int64(a.FrameDuration) / int64(time.Second))
	return samples * a.Channels * 2
}
