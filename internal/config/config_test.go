package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {

	os.Setenv("TG_TOKEN", "overrideToken")
	os.Setenv("ADMIN_CHAT_ID", "424242")
	os.Setenv("DB_CONNECTION_STRING", "newConnectionString")
	os.Setenv("REALTY_BASE_URL", "https://listings-override.example.com")
	os.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := loadConfig("../../configs/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "overrideToken", cfg.Notifier.Token)
	assert.Equal(t, int64(424242), cfg.Notifier.AdminChatID)
	assert.Equal(t, "newConnectionString", cfg.DB.ConnectionString)
	assert.Equal(t, "https://listings-override.example.com", cfg.Fetcher.BaseURL)
	assert.Equal(t, LevelDebug, cfg.Logger.LogLevel)
}

func Test_Config_ValidationReportsEveryMissingSection(t *testing.T) {

	err := Config{}.validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "DBConfig")
	assert.Contains(t, err.Error(), "LoggerConfig")
	assert.Contains(t, err.Error(), "FetcherConfig")
	assert.Contains(t, err.Error(), "SchedulerConfig")
	assert.Contains(t, err.Error(), "NotifierConfig")
	assert.Contains(t, err.Error(), "CleanerConfig")
}
