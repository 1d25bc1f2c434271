package config

import (
	"errors"
	"fmt"
)

type CleanerConfig struct {
	ListingExpirationDays int `mapstructure:"listing_expiration_days"`
	MarkerRetentionDays   int `mapstructure:"marker_retention_days"`
}

func (config CleanerConfig) validate() error {
	var errs []error

	if config.ListingExpirationDays <= 0 {
		errs = append(errs, fmt.Errorf("listing_expiration_days must be positive"))
	}
	if config.MarkerRetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("marker_retention_days must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}
