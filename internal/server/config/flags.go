package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/selva/internal/flagx"
)

var flagNames = []string{"-a", "-u", "-d", "-s", "-t", "-w", "-m", "-f", "-k", "-p", "-b", "-g", "-e", "-n", "-x", "-l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-u string   public base URL
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-w int      download token validity, seconds
//	-m int      max upload size, MiB
//	-f string   file storage ("s3" or "memory")
//	-k string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-n string   administrator username
//	-x string   administrator password
//	-l string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with the -c config flag.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.BaseURL, "u", config.BaseURL, "public base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	downloadTokenTTL := fs.Int("w", int(config.DownloadTokenTTL.Seconds()), "download_token_ttl (in seconds)")
	maxUploadSize := fs.Int64("m", config.MaxUploadSize>>20, "max_upload_size_mb (in MiB)")

	fs.StringVar(&config.FileStorage, "f", config.FileStorage, "file storage: s3 or memory")
	fs.StringVar(&config.S3RootUser, "k", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.AdminUsername, "n", config.AdminUsername, "administrator username")
	fs.StringVar(&config.AdminPassword, "x", config.AdminPassword, "administrator password")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.DownloadTokenTTL = time.Duration(*downloadTokenTTL) * time.Second
	config.MaxUploadSize = *maxUploadSize << 20
	return nil
}
