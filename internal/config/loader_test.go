package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/maisearch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"MAISEARCH_CONFIG",
	"MAISEARCH_ADDR",
	"MAISEARCH_LOG_LEVEL",
	"MAISEARCH_CATALOG_DRIVER",
	"MAISEARCH_DB_PATH",
	"MAISEARCH_SEARCH_LIMIT",
	"MAISEARCH_MAX_DISTANCE",
	"MAISEARCH_REFRESH_ON_START",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maisearch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SearchLimit, convey.ShouldEqual, 3)
				convey.So(cfg.RefreshOnStart, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MAISEARCH_ADDR", ":8080")
			_ = os.Setenv("MAISEARCH_CATALOG_DRIVER", "memory")
			_ = os.Setenv("MAISEARCH_SEARCH_LIMIT", "5")
			_ = os.Setenv("MAISEARCH_REFRESH_ON_START", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CatalogDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.SearchLimit, convey.ShouldEqual, 5)
				convey.So(cfg.RefreshOnStart, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
log_level: debug
max_distance: 40
search_limit: 4
`)
			_ = os.Setenv("MAISEARCH_CONFIG", path)
			_ = os.Setenv("MAISEARCH_ADDR", ":8081")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.MaxDistance, convey.ShouldEqual, 40)
				convey.So(cfg.SearchLimit, convey.ShouldEqual, 4)
				convey.So(cfg.DeluxeBestSize, convey.ShouldEqual, 15)
			})
		})

		convey.Convey("When an explicit path is given", func() {
			path := createTempConfigFile(t, "db_path: /tmp/other.sqlite3\n")

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then it is used without the env var", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/other.sqlite3")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("MAISEARCH_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("MAISEARCH_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("MAISEARCH_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("MAISEARCH_SEARCH_LIMIT", "lots")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
