package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type FetcherConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	MaxRequestsPerSecond float32       `mapstructure:"max_requests_per_second"`
	DetailBatchSize      int           `mapstructure:"detail_batch_size"`
	DetailBatchDelay     time.Duration `mapstructure:"detail_batch_delay"`
	MinPhotos            int           `mapstructure:"min_photos"`
	BreakerThreshold     int           `mapstructure:"breaker_threshold"`
	BreakerWindow        time.Duration `mapstructure:"breaker_window"`
	BreakerCooldown      time.Duration `mapstructure:"breaker_cooldown"`
}

func (config FetcherConfig) validate() error {

	var missingFields []string

	if config.BaseURL == "" {
		missingFields = append(missingFields, "base_url")
	}

	if config.MaxRequestsPerSecond <= 0 {
		missingFields = append(missingFields, "max_requests_per_second")
	}

	if config.BreakerThreshold <= 0 {
		missingFields = append(missingFields, "breaker_threshold")
	}

	if config.BreakerWindow <= 0 {
		missingFields = append(missingFields, "breaker_window")
	}

	if config.BreakerCooldown <= 0 {
		missingFields = append(missingFields, "breaker_cooldown")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config FetcherConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("fetcher.base_url", "REALTY_BASE_URL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("fetcher.max_requests_per_second", "REALTY_MAX_REQUESTS_PER_SECOND"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
