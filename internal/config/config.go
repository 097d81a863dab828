package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers supported by the counter and user stores
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// BranchConfig declares one enrolment branch and the prefix of its student IDs
type BranchConfig struct {
	Key  string `yaml:"key"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Storage struct {
		Driver     string `yaml:"driver" env:"STORAGE_DRIVER"`
		SQLitePath string `yaml:"sqlite_path" env:"STORAGE_SQLITE_PATH"`
	} `yaml:"storage"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Allocator struct {
		MaxAttempts    int           `yaml:"max_attempts" env:"ALLOCATOR_MAX_ATTEMPTS"`
		InitialBackoff time.Duration `yaml:"initial_backoff" env:"ALLOCATOR_INITIAL_BACKOFF"`
		MaxBackoff     time.Duration `yaml:"max_backoff" env:"ALLOCATOR_MAX_BACKOFF"`
		IDWidth        int           `yaml:"id_width" env:"ALLOCATOR_ID_WIDTH"`
	} `yaml:"allocator"`

	Branches Branches `yaml:"branches" env:"BRANCHES"`

	Admin struct {
		Email    string `yaml:"email" env:"ADMIN_EMAIL"`
		Password string `yaml:"password" env:"ADMIN_PASSWORD"`
		Name     string `yaml:"name" env:"ADMIN_NAME"`
	} `yaml:"admin"`
}

// Branches is the ordered branch list. From the environment it is read as
// comma separated key:CODE:Name triples.
type Branches []BranchConfig

// DecodeEnv parses "wardha:WR:Wardha,nagpur:NG:Nagpur"
func (b *Branches) DecodeEnv(value string) error {
	var out Branches
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 {
			return fmt.Errorf("branch %q must be key:CODE[:Name]", item)
		}
		bc := BranchConfig{Key: parts[0], Code: parts[1]}
		if len(parts) == 3 {
			bc.Name = parts[2]
		}
		out = append(out, bc)
	}
	*b = out
	return nil
}

// DefaultBranches is the closed set of branches the academy operates
func DefaultBranches() Branches {
	return Branches{
		{Key: "wardha", Code: "WR", Name: "Wardha"},
		{Key: "nagpur", Code: "NG", Name: "Nagpur"},
		{Key: "butibori", Code: "BR", Name: "Butibori"},
		{Key: "akola", Code: "AK", Name: "Akola"},
	}
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; environment variables alone are enough to boot
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	// Storage defaults
	config.Storage.Driver = DriverPostgres
	config.Storage.SQLitePath = "data/academy.db"

	// Database defaults
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "academy"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	// JWT defaults
	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "supersix.academy"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Allocator defaults
	config.Allocator.MaxAttempts = 5
	config.Allocator.InitialBackoff = 20 * time.Millisecond
	config.Allocator.MaxBackoff = 500 * time.Millisecond
	config.Allocator.IDWidth = 4

	config.Branches = DefaultBranches()

	config.Admin.Email = "admin@supersix.academy"
	config.Admin.Name = "Administrator"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Storage.Driver) {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database connection max lifetime: %w", err)
		}
	case DriverSQLite:
		if strings.TrimSpace(config.Storage.SQLitePath) == "" {
			return fmt.Errorf("sqlite path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}
	config.Storage.Driver = strings.ToLower(config.Storage.Driver)

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if config.Allocator.MaxAttempts < 1 {
		return fmt.Errorf("allocator max attempts must be at least 1")
	}
	if config.Allocator.InitialBackoff < 0 || config.Allocator.MaxBackoff < config.Allocator.InitialBackoff {
		return fmt.Errorf("allocator backoff window is invalid")
	}
	if config.Allocator.IDWidth < 1 || config.Allocator.IDWidth > 12 {
		return fmt.Errorf("allocator id width must be between 1 and 12")
	}

	return validateBranches(config.Branches)
}

// validateBranches rejects empty, duplicated or overlapping branch declarations
func validateBranches(branches Branches) error {
	if len(branches) == 0 {
		return fmt.Errorf("at least one branch is required")
	}

	keys := make(map[string]struct{}, len(branches))
	codes := make(map[string]struct{}, len(branches))
	for i, b := range branches {
		key := strings.ToLower(strings.TrimSpace(b.Key))
		code := strings.ToUpper(strings.TrimSpace(b.Code))
		if key == "" || code == "" {
			return fmt.Errorf("branch %d: key and code are required", i)
		}
		for _, r := range code {
			if r < 'A' || r > 'Z' {
				return fmt.Errorf("branch %q: code must contain only letters", key)
			}
		}
		if _, dup := keys[key]; dup {
			return fmt.Errorf("branch %q declared twice", key)
		}
		if _, dup := codes[code]; dup {
			return fmt.Errorf("branch code %q declared twice", code)
		}
		keys[key] = struct{}{}
		codes[code] = struct{}{}
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
