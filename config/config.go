package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all settings for dataset preparation and batch assembly.
// Values are read by viper from a YAML config file, with RCDATA_*
// environment variables taking precedence over file values.
type Config struct {
	// MaxPassageNum caps how many passages per record a batch considers.
	MaxPassageNum int `mapstructure:"max_passage_num"`

	// MaxPassageLen caps the padded passage length of a batch.
	MaxPassageLen int `mapstructure:"max_passage_len"`

	// MaxQuestionLen caps the padded question length of a batch.
	MaxQuestionLen int `mapstructure:"max_question_len"`

	// BatchSize is the target number of records per mini-batch.
	BatchSize int `mapstructure:"batch_size"`

	// PaddingID is the vocabulary id used to pad token-id rows.
	PaddingID int `mapstructure:"padding_id"`

	// Shuffle controls whether each pass draws a fresh random permutation.
	Shuffle bool `mapstructure:"shuffle"`

	// BadcaseSampleLog is where rejected training records are appended.
	// Required whenever TrainFiles is non-empty.
	BadcaseSampleLog string `mapstructure:"badcase_sample_log"`

	// Seed for the shuffling RNG; zero means time-based.
	Seed int64 `mapstructure:"seed"`

	TrainFiles []string `mapstructure:"train_files"`
	DevFiles   []string `mapstructure:"dev_files"`
	TestFiles  []string `mapstructure:"test_files"`
}

// Load reads configuration from the given file, or from ./rcdata.yaml when
// path is empty. A missing file is not an error when no explicit path was
// given; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("rcdata")
		v.SetConfigType("yaml")
	}

	v.SetDefault("max_passage_num", 5)
	v.SetDefault("max_passage_len", 500)
	v.SetDefault("max_question_len", 60)
	v.SetDefault("batch_size", 32)
	v.SetDefault("padding_id", 0)
	v.SetDefault("shuffle", true)

	v.SetEnvPrefix("rcdata")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}
