package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/williamokano/s3_connector/pkg/keys"
	"github.com/williamokano/s3_connector/pkg/storage"
)

// Backends lists the gateway types S3_BACKEND may select
var Backends = []string{"s3", "minio", "local", "backblaze", "ssh"}

// Storage holds the object store settings shared by every node call
type Storage struct {
	EndpointURL     string // optional; empty selects AWS virtual-hosted addressing
	AccessKeyID     string
	SecretAccessKey string
	Region          string // default: us-east-1
	BucketName      string // required
	Prefix          string // normalized to end with "/" when non-empty
	ForcePathStyle  *bool  // nil leaves the backend default in place
}

// Local configures the filesystem gateway
type Local struct {
	Path string // default: ./s3_data
}

// Backblaze configures the B2 gateway
type Backblaze struct {
	AccountID      string
	ApplicationKey string
}

// SFTP configures the SSH gateway
type SFTP struct {
	Host          string
	Port          int // default: 22
	User          string
	Password      string
	KeyPath       string
	KeyPassphrase string
	RemotePath    string
}

// Config is the root configuration, built once at startup
type Config struct {
	Backend   string // s3, minio, local, backblaze, ssh (default: s3)
	Storage   Storage
	Local     Local
	Backblaze Backblaze
	SFTP      SFTP
	LogLevel  string // debug, info, warn, error (default: info)
	LogFormat string // json, console (default: console)
}

// Load reads envFile (if it exists) into the process environment and
// resolves every setting from the environment. Values already present in
// the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// A missing file is not an error; the environment alone is enough
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("%w: failed to read %s: %v", keys.ErrConfiguration, envFile, err)
			}
		}
	}

	v := viper.New()
	v.SetDefault("S3_BACKEND", "s3")
	v.SetDefault("S3_ENDPOINT_URL", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_REGION", keys.DefaultRegion)
	v.SetDefault("S3_BUCKET_NAME", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("S3_LOCAL_PATH", "./s3_data")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	// Read from environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Backend: strings.ToLower(strings.TrimSpace(v.GetString("S3_BACKEND"))),
		Storage: Storage{
			EndpointURL:     strings.TrimSpace(v.GetString("S3_ENDPOINT_URL")),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			Region:          v.GetString("S3_REGION"),
			BucketName:      strings.TrimSpace(v.GetString("S3_BUCKET_NAME")),
			Prefix:          keys.NormalizePrefix(v.GetString("S3_PREFIX")),
		},
		Local: Local{
			Path: v.GetString("S3_LOCAL_PATH"),
		},
		Backblaze: Backblaze{
			AccountID:      v.GetString("B2_ACCOUNT_ID"),
			ApplicationKey: v.GetString("B2_APPLICATION_KEY"),
		},
		SFTP: SFTP{
			Host:          v.GetString("SFTP_HOST"),
			Port:          v.GetInt("SFTP_PORT"),
			User:          v.GetString("SFTP_USER"),
			Password:      v.GetString("SFTP_PASSWORD"),
			KeyPath:       v.GetString("SFTP_KEY_PATH"),
			KeyPassphrase: v.GetString("SFTP_KEY_PASSPHRASE"),
			RemotePath:    v.GetString("SFTP_REMOTE_PATH"),
		},
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = keys.DefaultRegion
	}

	if raw := strings.TrimSpace(v.GetString("S3_FORCE_PATH_STYLE")); raw != "" {
		forcePathStyle := v.GetBool("S3_FORCE_PATH_STYLE")
		cfg.Storage.ForcePathStyle = &forcePathStyle
	}

	return cfg, nil
}

// Validate checks the settings every node needs. The bucket is checked
// again at key construction, so a node call never reaches the store
// without one.
func (c *Config) Validate() error {
	if c.Storage.BucketName == "" {
		return fmt.Errorf("%w: S3_BUCKET_NAME not configured", keys.ErrConfiguration)
	}

	for _, b := range Backends {
		if c.Backend == b {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown S3_BACKEND %q (supported: %s)",
		keys.ErrConfiguration, c.Backend, strings.Join(Backends, ", "))
}

// Resolver returns the key resolver for this configuration
func (c *Config) Resolver() keys.Resolver {
	return keys.Resolver{
		Prefix:      c.Storage.Prefix,
		Bucket:      c.Storage.BucketName,
		EndpointURL: c.Storage.EndpointURL,
		Region:      c.Storage.Region,
	}
}

// StorageBackend returns the gateway configuration for the selected backend
func (c *Config) StorageBackend() storage.Config {
	opts := map[string]interface{}{
		"endpoint":          c.Storage.EndpointURL,
		"region":            c.Storage.Region,
		"access_key_id":     c.Storage.AccessKeyID,
		"secret_access_key": c.Storage.SecretAccessKey,
	}
	if c.Storage.ForcePathStyle != nil {
		opts["force_path_style"] = *c.Storage.ForcePathStyle
	}

	switch c.Backend {
	case "local":
		opts["path"] = c.Local.Path
	case "backblaze":
		opts["account_id"] = c.Backblaze.AccountID
		opts["application_key"] = c.Backblaze.ApplicationKey
	case "ssh":
		opts["host"] = c.SFTP.Host
		opts["port"] = c.SFTP.Port
		opts["user"] = c.SFTP.User
		opts["password"] = c.SFTP.Password
		opts["key_path"] = c.SFTP.KeyPath
		opts["key_passphrase"] = c.SFTP.KeyPassphrase
		opts["remote_path"] = c.SFTP.RemotePath
	}

	return storage.Config{
		Name:    c.Backend,
		Type:    c.Backend,
		Bucket:  c.Storage.BucketName,
		Options: opts,
	}
}

// GetLogLevel returns the log level (defaults to info)
func (c *Config) GetLogLevel() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return "info"
}

// GetLogFormat returns the log format (defaults to console)
func (c *Config) GetLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	return "console"
}
