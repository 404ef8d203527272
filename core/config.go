package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// session store backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
	SessionBackendSQL    = "sql"
)

type (
	serverConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
		SecureCookies   bool
	}

	backendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	authConfig struct {
		GuardWait time.Duration
	}

	sessionConfig struct {
		Backend    string
		CookieName string
		IdleTTL    time.Duration
	}

	redisConfig struct {
		Address  string
		Password string
		DB       int
	}

	databaseConfig struct {
		URL string
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		RollbarToken string
		Server       serverConfig
		Backend      backendConfig
		Auth         authConfig
		Session      sessionConfig
		Redis        redisConfig
		Database     databaseConfig
	}
)

// NewConfig reads the configuration for the current ENV (DEV by default).
// Values come from defaults, then config/.env.<env> (if present), then the environment,
// where keys are looked up with the ENV prefix: e.g. "server.address" -> DEV_SERVER_ADDRESS.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "CACE")
	v.SetDefault("build", "dev")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.secureCookies", false)
	v.SetDefault("apiBaseURL", "http://localhost:5000")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("auth.guardWait", 2*time.Second)
	v.SetDefault("session.backend", SessionBackendMemory)
	v.SetDefault("session.cookieName", "cace_session")
	v.SetDefault("session.idleTTL", 12*time.Hour)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.url", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("testMode", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	// un-prefixed names kept for deployments sharing the backend's env file
	_ = v.BindEnv("apiBaseURL", "API_BASE_URL")
	_ = v.BindEnv("rollbarToken", "ROLLBAR_TOKEN")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("redis.address", "REDIS_ADDR")

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: serverConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
			SecureCookies:   v.GetBool("server.secureCookies"),
		},
		Backend: backendConfig{
			BaseURL: strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Auth: authConfig{
			GuardWait: v.GetDuration("auth.guardWait"),
		},
		Session: sessionConfig{
			Backend:    strings.ToLower(v.GetString("session.backend")),
			CookieName: v.GetString("session.cookieName"),
			IdleTTL:    v.GetDuration("session.idleTTL"),
		},
		Redis: redisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: databaseConfig{
			URL: v.GetString("database.url"),
		},
	}
}
