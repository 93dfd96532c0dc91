package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./soundpost.db" {
			t.Errorf("expected database path ./soundpost.db, got %s", config.Database.Path)
		}

		if config.Backend.Kind != "sqlite" {
			t.Errorf("expected sqlite backend, got %s", config.Backend.Kind)
		}

		if config.Catalog.BaseURL != "https://api.deezer.com" {
			t.Errorf("expected deezer base URL, got %s", config.Catalog.BaseURL)
		}

		if len(config.Catalog.Relays) != 3 {
			t.Fatalf("expected 3 relays, got %d", len(config.Catalog.Relays))
		}

		names := []string{"allorigins", "corsproxy", "codetabs"}
		for i, name := range names {
			if config.Catalog.Relays[i].Name != name {
				t.Errorf("expected relay %d to be %s, got %s", i, name, config.Catalog.Relays[i].Name)
			}
		}

		if config.Catalog.Relays[2].Encode {
			t.Error("expected codetabs relay to take the raw target URL")
		}

		if got := config.Catalog.TransientStatuses; len(got) != 3 || got[0] != 408 || got[1] != 502 || got[2] != 503 {
			t.Errorf("expected transient statuses [408 502 503], got %v", got)
		}

		if config.Player.Volume != 70 {
			t.Errorf("expected player volume 70, got %d", config.Player.Volume)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[database]
path = "/custom/path.db"

[backend]
kind = "firestore"

[firebase]
project_id = "demo-project"

[catalog]
base_url = "http://localhost:9999"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Backend.Kind != "firestore" {
			t.Errorf("expected firestore backend, got %s", config.Backend.Kind)
		}
		if config.Firebase.ProjectID != "demo-project" {
			t.Errorf("expected project demo-project, got %s", config.Firebase.ProjectID)
		}
		if config.Catalog.BaseURL != "http://localhost:9999" {
			t.Errorf("expected overridden base URL, got %s", config.Catalog.BaseURL)
		}
		if len(config.Catalog.Relays) != 3 {
			t.Errorf("expected default relays to survive a partial file, got %d", len(config.Catalog.Relays))
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestEnv(t *testing.T) {
	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
		t.Setenv(EnvNATSURL, "nats://localhost:4222")
		t.Setenv(EnvS3AccessKeyID, "key")
		t.Setenv(EnvS3SecretKey, "secret")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Cache.RedisURL != "redis://localhost:6379/0" {
			t.Errorf("expected redis URL from env, got %s", config.Cache.RedisURL)
		}
		if config.Events.NATSURL != "nats://localhost:4222" {
			t.Errorf("expected nats URL from env, got %s", config.Events.NATSURL)
		}
		if config.Storage.S3AccessKeyID != "key" || config.Storage.S3SecretAccessKey != "secret" {
			t.Error("expected S3 credentials from env")
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("SOUNDPOST_TEST_VALUE=from-file\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("SOUNDPOST_TEST_VALUE") })

		if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("SOUNDPOST_TEST_VALUE"); got != "from-file" {
			t.Errorf("expected from-file, got %q", got)
		}
	})
}
