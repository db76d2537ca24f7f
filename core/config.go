package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const maxUploadSize = 10 << 20 // 10 MiB

type (
	ServerConfig struct {
		Address                   string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // memory, postgres, mongodb
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MongoURI      string
	}

	EmailConfig struct {
		DefaultFromEmail string
		DefaultFromName  string
		SendgridAPIKey   string
	}

	NotificationsConfig struct {
		Enabled bool
	}

	StorageConfig struct {
		UploadDir     string
		MaxUploadSize int64
		B2AccountID   string
		B2AppKey      string
		B2Bucket      string
	}

	// Config holds every setting of the application. It is loaded once at start-up and passed down.
	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Build                     string
		SecretKey                 string
		FrontendBaseURL           string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration
		WorkDir                   string

		Server        ServerConfig
		Database      DatabaseConfig
		Email         EmailConfig
		Notifications NotificationsConfig
		Storage       StorageConfig
	}
)

func (c StorageConfig) B2Enabled() bool {
	return c.B2AccountID != "" && c.B2AppKey != "" && c.B2Bucket != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Planeación Académica")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "s8f!r2k$1x_9l+planeacion-dev-key&h0q3^w7z(e4m")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":8001")
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 72*time.Hour)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "planeacion")
	v.SetDefault("database.user", "planeacion")
	v.SetDefault("database.password", "planeacion")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.mongoURI", "mongodb://localhost:27017")

	v.SetDefault("email.defaultFromEmail", "noreply@localhost")
	v.SetDefault("email.defaultFromName", "Planeación Académica")

	v.SetDefault("notifications.enabled", true)

	v.SetDefault("storage.uploadDir", "uploads")
	v.SetDefault("storage.maxUploadSize", maxUploadSize)
}

// NewConfig reads the configuration from `config/.env.<env>` (if it exists) and from the environment.
// Environment variables are prefixed with the upper-cased ENV value: DEV_DATABASE_ENGINE=postgres.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		WorkDir:                   wd,
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MongoURI:      v.GetString("database.mongoURI"),
		},
		Email: EmailConfig{
			DefaultFromEmail: v.GetString("email.defaultFromEmail"),
			DefaultFromName:  v.GetString("email.defaultFromName"),
			SendgridAPIKey:   v.GetString("email.sendgridApiKey"),
		},
		Notifications: NotificationsConfig{
			Enabled: v.GetBool("notifications.enabled"),
		},
		Storage: StorageConfig{
			UploadDir:     v.GetString("storage.uploadDir"),
			MaxUploadSize: v.GetInt64("storage.maxUploadSize"),
			B2AccountID:   v.GetString("storage.b2AccountID"),
			B2AppKey:      v.GetString("storage.b2AppKey"),
			B2Bucket:      v.GetString("storage.b2Bucket"),
		},
	}
	return conf, nil
}

// NewTestConfig returns a Config suitable for tests: in-memory storage, no request logs.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   v.GetString("appName"),
		Build:                     "test",
		SecretKey:                 "test-secret",
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           time.Second,
			DisableReqLogs:            true,
		},
		Database:      DatabaseConfig{Engine: "memory"},
		Email:         EmailConfig{DefaultFromEmail: "noreply@test.local", DefaultFromName: "Test"},
		Notifications: NotificationsConfig{Enabled: true},
		Storage:       StorageConfig{MaxUploadSize: maxUploadSize},
	}
}
