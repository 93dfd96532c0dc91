package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Backend  BackendConfig  `toml:"backend"`
	Firebase FirebaseConfig `toml:"firebase"`
	Storage  StorageConfig  `toml:"storage"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Cache    CacheConfig    `toml:"cache"`
	Events   EventsConfig   `toml:"events"`
	Player   PlayerConfig   `toml:"player"`
	Feed     FeedConfig     `toml:"feed"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings for the sqlite document store.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BackendConfig selects the document store implementation.
type BackendConfig struct {
	Kind string `toml:"kind"`
}

// FirebaseConfig contains Google project settings shared by the Firestore, Cloud Storage and Firebase Auth clients.
type FirebaseConfig struct {
	ProjectID       string `toml:"project_id"`
	CredentialsFile string `toml:"credentials_file"`
	StorageBucket   string `toml:"storage_bucket"`
	AccessToken     string `toml:"-"`
}

// StorageConfig selects and configures the object storage implementation.
type StorageConfig struct {
	Kind              string `toml:"kind"`
	LocalDir          string `toml:"local_dir"`
	Bucket            string `toml:"bucket"`
	PublicURL         string `toml:"public_url"`
	S3Endpoint        string `toml:"s3_endpoint"`
	S3Region          string `toml:"s3_region"`
	S3AccessKeyID     string `toml:"-"`
	S3SecretAccessKey string `toml:"-"`
}

// RelayConfig describes one CORS relay proxy. Encode controls whether the target URL is query-escaped.
type RelayConfig struct {
	Name   string `toml:"name"`
	Prefix string `toml:"prefix"`
	Encode bool   `toml:"encode"`
}

// CatalogConfig contains the music catalog endpoint and the ordered relay chain used to reach it.
type CatalogConfig struct {
	BaseURL           string        `toml:"base_url"`
	TimeoutSeconds    int           `toml:"timeout_seconds"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	TransientStatuses []int         `toml:"transient_statuses"`
	Relays            []RelayConfig `toml:"relays"`
}

// CacheConfig contains the optional redis cache for catalog lookups.
type CacheConfig struct {
	RedisURL   string `toml:"redis_url"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// EventsConfig contains the optional NATS mirror for dispatched actions.
type EventsConfig struct {
	NATSURL       string `toml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// PlayerConfig contains the external audio command and initial volume.
type PlayerConfig struct {
	Command []string `toml:"command"`
	Volume  int      `toml:"volume"`
}

// FeedConfig contains feed paging settings.
type FeedConfig struct {
	PageSize int `toml:"page_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
