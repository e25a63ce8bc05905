package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "JSNINJA"

// runtime environment
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// realtime transport driver
const (
	RealtimeRedis = "redis"
	RealtimeNATS  = "nats"
)

// TrackingConfig thresholds and timers of the lesson trackers
type TrackingConfig struct {
	CompletionThreshold float64       `mapstructure:"completion_threshold" json:"completion_threshold" yaml:"completion_threshold" validate:"gt=0,max=100"` // video completion percentage
	FinalProgressAt     float64       `mapstructure:"final_progress_at" json:"final_progress_at" yaml:"final_progress_at" validate:"gt=0,max=100"`        // one-time final send after threshold
	PollInterval        time.Duration `mapstructure:"poll_interval" json:"poll_interval" yaml:"poll_interval" validate:"required"`                        // video position re-sample
	MinProgressDelta    time.Duration `mapstructure:"min_progress_delta" json:"min_progress_delta" yaml:"min_progress_delta"`                             // video position delta worth an update
	NoiseFloor          time.Duration `mapstructure:"noise_floor" json:"noise_floor" yaml:"noise_floor"`                                                  // minimal elapsed time for a teardown update
	InitAttempts        int           `mapstructure:"init_attempts" json:"init_attempts" yaml:"init_attempts" validate:"min=1"`                           // player binding attempts
	InitBackoff         time.Duration `mapstructure:"init_backoff" json:"init_backoff" yaml:"init_backoff" validate:"required"`
	WordsPerMinute      int           `mapstructure:"words_per_minute" json:"words_per_minute" yaml:"words_per_minute" validate:"min=1"`
	AvgWordLength       int           `mapstructure:"avg_word_length" json:"avg_word_length" yaml:"avg_word_length" validate:"min=1"`
	MinReadingTime      time.Duration `mapstructure:"min_reading_time" json:"min_reading_time" yaml:"min_reading_time"`
	TextTick            time.Duration `mapstructure:"text_tick" json:"text_tick" yaml:"text_tick" validate:"required"`
	TextInitialDelay    time.Duration `mapstructure:"text_initial_delay" json:"text_initial_delay" yaml:"text_initial_delay" validate:"required"`
	TextUpdateInterval  time.Duration `mapstructure:"text_update_interval" json:"text_update_interval" yaml:"text_update_interval" validate:"required"`
}

// DefaultTrackingConfig tracker defaults
func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		CompletionThreshold: 90,
		FinalProgressAt:     99,
		PollInterval:        30 * time.Second,
		MinProgressDelta:    10 * time.Second,
		NoiseFloor:          10 * time.Second,
		InitAttempts:        3,
		InitBackoff:         2 * time.Second,
		WordsPerMinute:      200,
		AvgWordLength:       5,
		MinReadingTime:      30 * time.Second,
		TextTick:            time.Second,
		TextInitialDelay:    10 * time.Second,
		TextUpdateInterval:  30 * time.Second,
	}
}

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	Logging        struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength       int           `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated session IDs
		JWTMethod      string        `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512 ES256"`
		JWTSecret      string        `mapstructure:"jwt_secret" json:"jwt_secret" yaml:"jwt_secret" validate:"required"`
		TokenName      string        `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"` // jwt token name set in cookie
		SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout"`    // refreshed token lifetime
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host     string `mapstructure:"host" json:"host" yaml:"host"` // bind host address
		Port     int    `mapstructure:"port" json:"port" yaml:"port"` // bind listen port
		Password string `mapstructure:"password" json:"password" yaml:"password"`
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Realtime struct {
		Driver        string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=redis nats"`
		NATSURL       string `mapstructure:"nats_url" json:"nats_url" yaml:"nats_url" validate:"required_if=Driver nats"`
		ChannelPrefix string `mapstructure:"channel_prefix" json:"channel_prefix" yaml:"channel_prefix" validate:"required"` // per-user channel name prefix
	} `mapstructure:"realtime" json:"realtime" yaml:"realtime"`
	API struct {
		BaseURL string        `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"required,url"` // backend API root
		Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	} `mapstructure:"api" json:"api" yaml:"api"`
	Tracking TrackingConfig `mapstructure:"tracking" json:"tracking" yaml:"tracking"`
	DevOP    struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	// app
	pflag.String("host", "", "binding address")
	pflag.String("app_id", "", "application identifier (required)")
	pflag.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	pflag.Int("port", 8081, "listening port")
	pflag.Duration("request_timeout", 30*time.Second, "request timeout(m, s and h units are supported), eg.30s")

	// logging
	pflag.String("logging.level", "info", "logging level")
	pflag.String("logging.file_path", "", "log to file")

	// security
	pflag.Int("security.id_length", 21, "set length of generated tracking session IDs")
	pflag.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	pflag.String("security.jwt_secret", "", "JWT secret (required)")
	pflag.String("security.token_name", "", "cookie name to read the token from (required)")
	pflag.Duration("security.session_timeout", 24*time.Hour, "lifetime of a refreshed token")

	// kv storage
	pflag.String("kv.host", "127.0.0.1", "kv host")
	pflag.Int("kv.port", 6379, "kv server port")
	pflag.String("kv.password", "", "kv server password")

	// realtime
	pflag.String("realtime.driver", RealtimeRedis, "realtime transport, can be 'redis' or 'nats'")
	pflag.String("realtime.nats_url", "", "nats server url (required when driver is nats)")
	pflag.String("realtime.channel_prefix", "user-", "per-user channel name prefix")

	// backend api
	pflag.String("api.base_url", "", "backend API root url (required)")
	pflag.Duration("api.timeout", 10*time.Second, "backend API call timeout")

	// tracking
	tracking := DefaultTrackingConfig()
	pflag.Float64("tracking.completion_threshold", tracking.CompletionThreshold, "video completion threshold in percent")
	pflag.Float64("tracking.final_progress_at", tracking.FinalProgressAt, "percent at which the one-time final progress is sent after the threshold")
	pflag.Duration("tracking.poll_interval", tracking.PollInterval, "video position poll interval")
	pflag.Duration("tracking.min_progress_delta", tracking.MinProgressDelta, "minimal playback delta worth a progress update")
	pflag.Duration("tracking.noise_floor", tracking.NoiseFloor, "minimal elapsed time before a teardown progress update")
	pflag.Int("tracking.init_attempts", tracking.InitAttempts, "player binding attempts")
	pflag.Duration("tracking.init_backoff", tracking.InitBackoff, "wait between player binding attempts")
	pflag.Int("tracking.words_per_minute", tracking.WordsPerMinute, "reading speed of the text lesson model")
	pflag.Int("tracking.avg_word_length", tracking.AvgWordLength, "average word length of the text lesson model")
	pflag.Duration("tracking.min_reading_time", tracking.MinReadingTime, "minimal expected reading time")
	pflag.Duration("tracking.text_tick", tracking.TextTick, "text lesson clock tick")
	pflag.Duration("tracking.text_initial_delay", tracking.TextInitialDelay, "delay of the first text lesson progress update")
	pflag.Duration("tracking.text_update_interval", tracking.TextUpdateInterval, "text lesson progress update interval")

	// DevOp
	pflag.Bool("devop.apm", false, "enable apm metrics")

	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config = new(AppConfig)
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

func validateConfig(config *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "-" || name == "" {
			name = fld.Tag.Get("yaml")
			if name == "-" || name == "" {
				return ""
			}
		}
		return name
	})
	err := validate.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		log.Fatalf("Failed to validate config: %s", err)
	}
	if err == nil {
		return nil
	}

	var msg []string
	for _, field := range err.(validator.ValidationErrors) {
		namespace := field.Namespace()
		fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
		switch field.Tag() {
		case "required", "required_if":
			msg = append(msg, fmt.Sprintf("%s is required", fieldName))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
		case "url":
			msg = append(msg, fmt.Sprintf("%s must be an url", fieldName))
		default:
			msg = append(msg, fmt.Sprintf("%s failed on %s=%s", fieldName, field.Tag(), field.Param()))
		}
	}
	if len(msg) > 0 {
		return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
	}
	return nil
}
