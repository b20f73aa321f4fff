package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the config reads.
const EnvPrefix = "RESOLVER_"

type Config struct {
	LogLevel int `yaml:"log_level" env:"LOG_LEVEL"`

	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Extractor ExtractorConfig `yaml:"extractor" envPrefix:"EXTRACTOR_"`
	YouTube   YouTubeConfig   `yaml:"youtube" envPrefix:"YOUTUBE_"`
	Playback  PlaybackConfig  `yaml:"playback" envPrefix:"PLAYBACK_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

type ExtractorConfig struct {
	// Program is the yt-dlp executable name or path
	Program   string   `yaml:"program" env:"PROGRAM"`
	Format    string   `yaml:"format" env:"FORMAT"`
	ExtraArgs []string `yaml:"extra_args" env:"EXTRA_ARGS"`
}

type YouTubeConfig struct {
	// APIKey enables the Data API search fast path when set
	APIKey            string  `yaml:"api_key" env:"API_KEY"`
	BaseURL           string  `yaml:"base_url" env:"BASE_URL"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

func (c YouTubeConfig) Enabled() bool {
	return c.APIKey != ""
}

type PlaybackConfig struct {
	// MetadataTimeout bounds how long now-playing waits for the extractor
	// before settling for the out-of-band lookup
	MetadataTimeout time.Duration `yaml:"metadata_timeout" env:"METADATA_TIMEOUT"`
}

type StorageConfig struct {
	// Type of storage: "local" or "gcs"
	Type string `yaml:"type" env:"TYPE"`

	// Local storage options
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`

	// GCS storage options
	BucketName      string `yaml:"bucket_name" env:"BUCKET_NAME"`
	ObjectPrefix    string `yaml:"object_prefix" env:"OBJECT_PREFIX"`
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
}

// Load reads the YAML file at path, overlays RESOLVER_* environment
// variables and fills in defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		// Unmarshal the YAML data into the struct
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, err
	}

	config.setDefaults()
	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}

	if c.Extractor.Program == "" {
		c.Extractor.Program = "yt-dlp"
	}

	if c.YouTube.BaseURL == "" {
		c.YouTube.BaseURL = "https://youtube.googleapis.com/"
	}

	if c.YouTube.RequestsPerSecond <= 0 {
		c.YouTube.RequestsPerSecond = 1
	}

	if c.Playback.MetadataTimeout <= 0 {
		c.Playback.MetadataTimeout = time.Second
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}

	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "output"
	}
}
