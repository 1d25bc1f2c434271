package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type NotifierConfig struct {
	Token             string  `mapstructure:"token"`
	AdminChatID       int64   `mapstructure:"admin_chat_id"`
	MessagesPerSecond float32 `mapstructure:"messages_per_second"`
}

func (config NotifierConfig) validate() error {

	var missingFields []string

	if config.Token == "" {
		missingFields = append(missingFields, "token")
	}

	if config.MessagesPerSecond <= 0 {
		missingFields = append(missingFields, "messages_per_second")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config NotifierConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("notifier.token", "TG_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("notifier.admin_chat_id", "ADMIN_CHAT_ID"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
