package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadJSONConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"AppPort": "9000", "AdminUsernames": ["root", "leo"]},
		"feed": {"IndexPageSize": 5, "IndexCacheSeconds": 30, "CacheBackend": "memory"},
		"db": {"Driver": "sqlite", "Name": "blog"},
		"kafka": {"Brokers": ["k1:9092"]},
		"storage": {"Backend": "minio", "MinioUseSSL": true}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("load: %v", err)
	}
	applyDefaults(&c)

	if c.AppPort != "9000" || len(c.AdminUsernames) != 2 {
		t.Errorf("app section not applied: %+v", c)
	}
	if c.IndexPageSize != 5 || c.GroupPageSize != 10 || c.IndexCacheSeconds != 30 || c.CacheBackend != "memory" {
		t.Errorf("feed section not applied: %+v", c)
	}
	if c.DBDriver != "sqlite" || c.DBName != "blog" {
		t.Errorf("db section not applied: %+v", c)
	}
	if len(c.KafkaBrokers) != 1 || c.KafkaTopic != "yatube.events" {
		t.Errorf("kafka section not applied: %+v", c)
	}
	if c.StorageBackend != "minio" || !c.MinioUseSSL || c.MinioBucket != "yatube" {
		t.Errorf("storage section not applied: %+v", c)
	}
}

func TestLoadJSONConfigMissingFile(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)
	if c.IndexPageSize != 10 || c.FollowPageSize != 10 || c.ProfilePageSize != 10 {
		t.Errorf("unexpected page sizes %d %d %d", c.IndexPageSize, c.FollowPageSize, c.ProfilePageSize)
	}
	if c.IndexCacheSeconds != 20 || c.SessionCookieName != "yatube_session" || c.DBPort != "3306" {
		t.Errorf("unexpected defaults %+v", c)
	}

	pg := AppConfig{DBDriver: "postgres"}
	applyDefaults(&pg)
	if pg.DBPort != "5432" {
		t.Errorf("postgres port default = %q", pg.DBPort)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INDEX_PAGE_SIZE", "3")
	t.Setenv("ADMIN_USERNAMES", " root , leo ,")
	t.Setenv("SECURE_COOKIES", "TRUE")

	c := AppConfig{IndexPageSize: 10}
	applyEnvOverrides(&c)
	if c.IndexPageSize != 3 || !c.SecureCookies {
		t.Errorf("env not applied: %+v", c)
	}
	if len(c.AdminUsernames) != 2 || c.AdminUsernames[1] != "leo" {
		t.Errorf("unexpected admins %q", c.AdminUsernames)
	}
}

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		c := AppConfig{DBDriver: driver}
		applyDefaults(&c)
		if _, err := dialectorFor(c); err != nil {
			t.Errorf("%s: %v", driver, err)
		}
	}
	if _, err := dialectorFor(AppConfig{DBDriver: "oracle"}); err == nil {
		t.Errorf("unknown driver accepted")
	}
}
