// ytanalyzer/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultChunkMaxLength is sized to the request budget of one chat completion call.
const DefaultChunkMaxLength = 15385

type Config struct {
	Port                string        `mapstructure:"PORT"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	OpenAIAPIKey        string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel         string        `mapstructure:"OPENAI_MODEL"`
	OpenAITimeout       time.Duration `mapstructure:"OPENAI_TIMEOUT"`
	OpenAITemperature   float64       `mapstructure:"OPENAI_TEMPERATURE"`
	OpenAIMaxTokens     int           `mapstructure:"OPENAI_MAX_TOKENS"`
	YouTubeTimeout      time.Duration `mapstructure:"YOUTUBE_TIMEOUT"`
	TranscriptLanguages []string      `mapstructure:"TRANSCRIPT_LANGUAGES"`
	MaxResponseSize     int64         `mapstructure:"MAX_RESPONSE_SIZE"`
	ChunkMaxLength      int           `mapstructure:"CHUNK_MAX_LENGTH"`
	AnalysisConcurrency int           `mapstructure:"ANALYSIS_CONCURRENCY"`
	MaxConcurrency      int           `mapstructure:"MAX_CONCURRENCY"`
	CacheDir            string        `mapstructure:"CACHE_DIR"`
	CacheLifetime       time.Duration `mapstructure:"CACHE_LIFETIME"`
	CachePruneSchedule  string        `mapstructure:"CACHE_PRUNE_SCHEDULE"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("PORT", "8080")
	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("OPENAI_API_KEY", "")
	vp.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	vp.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo-0125")
	vp.SetDefault("OPENAI_TIMEOUT", "2m")
	vp.SetDefault("OPENAI_TEMPERATURE", 0.5)
	vp.SetDefault("OPENAI_MAX_TOKENS", 4096)
	vp.SetDefault("YOUTUBE_TIMEOUT", "30s")
	vp.SetDefault("TRANSCRIPT_LANGUAGES", "en")
	vp.SetDefault("MAX_RESPONSE_SIZE", "10MB")
	vp.SetDefault("CHUNK_MAX_LENGTH", DefaultChunkMaxLength)
	vp.SetDefault("ANALYSIS_CONCURRENCY", 1)
	vp.SetDefault("MAX_CONCURRENCY", 4)
	vp.SetDefault("CACHE_DIR", "instance/cache")
	vp.SetDefault("CACHE_LIFETIME", "168h")
	vp.SetDefault("CACHE_PRUNE_SCHEDULE", "@every 1h")
	vp.SetDefault("SHUTDOWN_TIMEOUT", "2m")

	// Load from config file
	vp.SetConfigName("ytanalyzer_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/ytanalyzer/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("YTANALYZER")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// The order matters: the first hook that converts the value wins.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	if cfg.ChunkMaxLength <= 0 {
		cfg.ChunkMaxLength = DefaultChunkMaxLength
	}
	if cfg.AnalysisConcurrency <= 0 {
		cfg.AnalysisConcurrency = 1
	}
	cfg.TranscriptLanguages = trimAll(cfg.TranscriptLanguages)
	if len(cfg.TranscriptLanguages) == 0 {
		cfg.TranscriptLanguages = []string{"en"}
	}

	return &cfg, nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
