// Package config assembles the application configuration from defaults, a .env file, the environment,
// an optional YAML file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"datalanding/posix"
	"datalanding/store"
	"datalanding/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// log a convenience wrapper to shorten code lines
var log = utils.Logger

// Config represents the application configuration defined through various sources.
// Fields must stay of simple kinds (strings, numbers, bools, slices, pointers) for override to work.
type Config struct {
	// S3Endpoint is the URL of an S3-compatible service; empty means AWS.
	S3Endpoint        string        `yaml:"s3_endpoint"`
	S3Region          string        `yaml:"s3_region"`
	S3AccessKey       string        `yaml:"s3_access_key"`
	S3SecretKey       string        `yaml:"s3_secret_key"`
	S3CredentialsFile string        `yaml:"s3_credentials_file"`
	S3Profile         string        `yaml:"s3_profile"`
	S3CABundle        string        `yaml:"s3_ca_bundle"`
	S3PathStyle       bool          `yaml:"s3_path_style"`
	S3Timeout         time.Duration `yaml:"s3_timeout"`

	// MountRoot is where the allow-listed directories live, for example "/mapr/my.cluster".
	MountRoot string `yaml:"mount_root"`
	// AllowList are the directories that may be listed, relative to MountRoot.
	AllowList []string `yaml:"allow_list"`
	// TempDir receives objects downloaded from buckets; empty means the OS default.
	TempDir string `yaml:"temp_dir"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSSLMode  string `yaml:"db_sslmode"`
}

// dotEnvFile is read from the working directory when present.
var dotEnvFile = ".env"

// Singleton initialization - it is lazy-loaded and thread-safe
var (
	// instance the actual configuration after checking all possible configuration sources
	instance *Config
	once     sync.Once
	initErr  error
)

// Init loads the configuration once; later calls return the first result.
func Init(args *Config, configFile string) (*Config, error) {
	once.Do(func() {
		instance, initErr = Load(args, configFile)
	})
	return instance, initErr
}

// GetConfig returns the configuration loaded by Init, or the defaults when Init was not called.
func GetConfig() *Config {
	if instance == nil {
		return Default()
	}
	return instance
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		S3Region:  "us-east-1",
		S3Timeout: 30 * time.Second,
		AllowList: posix.DefaultAllowList(),
		DBHost:    "localhost",
		DBPort:    5432,
		DBSSLMode: "disable",
	}
}

// Load merges all configuration sources. The arguments come from the command line and override everything else;
// configFile may be empty.
func Load(args *Config, configFile string) (*Config, error) {
	c := Default()
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	if err := c.loadFromEnv(); err != nil {
		return nil, err
	}
	if configFile != "" {
		fileInstance, err := loadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		c.override(fileInstance)
	}
	if args != nil {
		c.override(args) // some arguments can override other configuration sources
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadDotEnv adds variables from a .env file to the environment without replacing ones already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Debug("Loaded environment file", zap.String("path", path))
	return nil
}

func (c *Config) loadFromEnv() error {
	variables := map[string]*string{
		"S3_ENDPOINT":                 &c.S3Endpoint,
		"AWS_REGION":                  &c.S3Region,
		"AWS_ACCESS_KEY_ID":           &c.S3AccessKey,
		"AWS_SECRET_ACCESS_KEY":       &c.S3SecretKey,
		"AWS_SHARED_CREDENTIALS_FILE": &c.S3CredentialsFile,
		"AWS_PROFILE":                 &c.S3Profile,
		"AWS_CA_BUNDLE":               &c.S3CABundle,
		"LANDING_MOUNT_ROOT":          &c.MountRoot,
		"LANDING_TEMP_DIR":            &c.TempDir,
		"PGHOST":                      &c.DBHost,
		"PGDATABASE":                  &c.DBName,
		"PGUSER":                      &c.DBUser,
		"PGPASSWORD":                  &c.DBPassword,
		"PGSSLMODE":                   &c.DBSSLMode,
	}
	for name, field := range variables {
		if value := os.Getenv(name); value != "" {
			*field = value
		}
	}

	if value := os.Getenv("LANDING_ALLOW_LIST"); value != "" {
		c.AllowList = utils.SplitList(value)
	}
	if value := os.Getenv("S3_PATH_STYLE"); value != "" {
		pathStyle, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for S3_PATH_STYLE: %w", err)
		}
		c.S3PathStyle = pathStyle
	}
	if value := os.Getenv("S3_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for S3_TIMEOUT: %w", err)
		}
		c.S3Timeout = timeout
	}
	if value := os.Getenv("PGPORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for PGPORT: %w", err)
		}
		c.DBPort = port
	}
	return nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	log.Debug("Loaded configuration file", zap.String("path", path))
	return c, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.DBPort < 0 || c.DBPort > 65535 {
		return fmt.Errorf("invalid database port %d", c.DBPort)
	}
	if c.S3Timeout < 0 {
		return fmt.Errorf("invalid S3 timeout %v", c.S3Timeout)
	}
	if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		return fmt.Errorf("both the S3 access key and the secret key are required")
	}
	for _, dir := range c.AllowList {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("allow-list entry %q is not an absolute path", dir)
		}
	}
	return nil
}

// StoreOptions returns the object store client options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		AccessKey:       c.S3AccessKey,
		SecretKey:       c.S3SecretKey,
		CredentialsFile: c.S3CredentialsFile,
		Profile:         c.S3Profile,
		CABundle:        c.S3CABundle,
		UsePathStyle:    c.S3PathStyle,
		Timeout:         c.S3Timeout,
	}
}

// DBConfigured reports whether a database is configured for table targets and queries.
func (c *Config) DBConfigured() bool {
	return strings.TrimSpace(c.DBName) != ""
}

// override updates the current Config instance's fields by overriding them with non-zero values
// from another Config instance.
func (c *Config) override(argsInstance *Config) {
	v := reflect.ValueOf(argsInstance).Elem()
	t := reflect.TypeOf(argsInstance).Elem()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanInterface() {
			continue
		}

		// Get the corresponding field in the original 'c' structure
		cField := reflect.ValueOf(c).Elem().FieldByName(fieldType.Name)

		// Check if the field exists and is settable
		if cField.IsValid() && cField.CanSet() {
			switch field.Kind() {
			case reflect.String:
				if field.String() != "" {
					cField.Set(field)
				}
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if field.Int() != 0 {
					cField.Set(field)
				}
			case reflect.Map, reflect.Slice:
				if !field.IsNil() {
					cField.Set(field)
				}
			case reflect.Bool:
				if field.Bool() {
					cField.Set(field)
				}
			case reflect.Ptr:
				if !field.IsNil() {
					cField.Set(field)
				}
			default:
				panic("unhandled default case")
			}
		}
	}
}
