package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/selva/internal/flagx"
	"github.com/dmitrijs2005/selva/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Pointer fields tell keys missing from the file apart from zero values, so
// only the keys present override the defaults. Durations use timex.Duration,
// which accepts both "1m" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	BaseURL                     *string         `json:"base_url"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	DownloadTokenTTL            *timex.Duration `json:"download_token_ttl"`
	MaxUploadSizeMB             *int64          `json:"max_upload_size_mb"`
	FileStorage                 *string         `json:"file_storage"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	AdminUsername               *string         `json:"admin_username"`
	AdminPassword               *string         `json:"admin_password"`
	LogLevel                    *string         `json:"log_level"`
}

// parseJson overlays the JSON file named by -c/-config (or $SELVA_CONFIG)
// onto config. Without a file name nothing is loaded.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.ConfigFilePath()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.DownloadTokenTTL != nil {
		config.DownloadTokenTTL = c.DownloadTokenTTL.Duration
	}
	if c.MaxUploadSizeMB != nil {
		config.MaxUploadSize = *c.MaxUploadSizeMB << 20
	}
	setString(&config.FileStorage, c.FileStorage)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
