package config

import (
	"errors"
	"fmt"
	"time"
)

type SchedulerConfig struct {
	Timezone     string        `mapstructure:"timezone"`
	NightStart   int           `mapstructure:"night_start"`
	NightEnd     int           `mapstructure:"night_end"`
	PeakStart    int           `mapstructure:"peak_start"`
	PeakEnd      int           `mapstructure:"peak_end"`
	BaseInterval time.Duration `mapstructure:"base_interval"`
	PeakInterval time.Duration `mapstructure:"peak_interval"`
	Workers      int           `mapstructure:"workers"`
	CycleTTL     time.Duration `mapstructure:"cycle_ttl"`
}

func (config SchedulerConfig) validate() error {
	var errs []error

	if config.Timezone == "" {
		errs = append(errs, fmt.Errorf("missing variable: timezone"))
	}

	for name, hour := range map[string]int{
		"night_start": config.NightStart, "night_end": config.NightEnd,
		"peak_start": config.PeakStart, "peak_end": config.PeakEnd,
	} {
		if hour < 0 || hour > 23 {
			errs = append(errs, fmt.Errorf("%s must be an hour between 0 and 23", name))
		}
	}

	if config.BaseInterval <= 0 {
		errs = append(errs, fmt.Errorf("base_interval must be positive"))
	}
	if config.PeakInterval <= 0 {
		errs = append(errs, fmt.Errorf("peak_interval must be positive"))
	}
	if config.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	if config.CycleTTL <= 0 {
		errs = append(errs, fmt.Errorf("cycle_ttl must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}
