package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by [Config.ApplyEnv].
const (
	EnvRedisURL        = "SOUNDPOST_REDIS_URL"
	EnvNATSURL         = "SOUNDPOST_NATS_URL"
	EnvS3AccessKeyID   = "SOUNDPOST_S3_ACCESS_KEY_ID"
	EnvS3SecretKey     = "SOUNDPOST_S3_SECRET_ACCESS_KEY"
	EnvFirebaseToken   = "SOUNDPOST_FIREBASE_TOKEN"
	EnvGoogleCreds     = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvFirebaseProject = "SOUNDPOST_FIREBASE_PROJECT"
)

// LoadEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays secrets and endpoints from the environment onto the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Events.NATSURL = v
	}
	if v := os.Getenv(EnvS3AccessKeyID); v != "" {
		c.Storage.S3AccessKeyID = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.Storage.S3SecretAccessKey = v
	}
	if v := os.Getenv(EnvFirebaseToken); v != "" {
		c.Firebase.AccessToken = v
	}
	if v := os.Getenv(EnvFirebaseProject); v != "" {
		c.Firebase.ProjectID = v
	}
	if v := os.Getenv(EnvGoogleCreds); v != "" && c.Firebase.CredentialsFile == "" {
		c.Firebase.CredentialsFile = v
	}
}
