package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Remote transports.
const (
	TransportPostgREST = "postgrest"
	TransportSQL       = "sqlx"
	TransportDummy     = "dummy"
)

type Config struct {
	Build            string
	Env              string
	Debug            bool
	TestMode         bool
	AppName          string
	RollbarToken     string
	SendgridApiKey   string
	DefaultFromEmail string
	FrontendBaseURL  string
	WorkDir          string

	Server struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		JWTSecret       string
	}

	Remote struct {
		Transport   string
		URL         string
		AnonKey     string
		ServiceKey  string
		DatabaseURL string
		Timeout     time.Duration
	}

	Storage struct {
		URL            string
		InvoicesBucket string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Log struct {
		Level      string
		File       string
		MaxSizeMB  int
		MaxBackups int
	}

	OpenAI struct {
		APIKey  string
		BaseURL string
		Model   string
	}

	Onboarding struct {
		LockTTL time.Duration
	}
}

// FromEmail parses DefaultFromEmail, falling back to a bare address.
func (c *Config) FromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// NewConfig reads the configuration of the current ENV (DEV by default) from the environment,
// loading config/.env.<env> first when it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "School Portal")
	v.SetDefault("defaultFromEmail", "School Portal <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtSecret", "super-secret-jwt-token-with-at-least-32-characters")
	v.SetDefault("remote.transport", TransportDummy)
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("storage.invoicesBucket", "invoices")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 5)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("onboarding.lockTTL", 30*time.Second)

	conf := &Config{
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          wd,
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.JWTSecret = v.GetString("server.jwtSecret")

	conf.Remote.Transport = v.GetString("remote.transport")
	conf.Remote.URL = v.GetString("remote.url")
	conf.Remote.AnonKey = v.GetString("remote.anonKey")
	conf.Remote.ServiceKey = v.GetString("remote.serviceKey")
	conf.Remote.DatabaseURL = v.GetString("remote.databaseURL")
	conf.Remote.Timeout = v.GetDuration("remote.timeout")

	conf.Storage.URL = v.GetString("storage.url")
	conf.Storage.InvoicesBucket = v.GetString("storage.invoicesBucket")

	conf.Redis.Addr = v.GetString("redis.addr")
	conf.Redis.Password = v.GetString("redis.password")
	conf.Redis.DB = v.GetInt("redis.db")

	conf.Log.Level = v.GetString("log.level")
	conf.Log.File = v.GetString("log.file")
	conf.Log.MaxSizeMB = v.GetInt("log.maxSizeMB")
	conf.Log.MaxBackups = v.GetInt("log.maxBackups")

	conf.OpenAI.APIKey = v.GetString("openai.apiKey")
	conf.OpenAI.BaseURL = v.GetString("openai.baseURL")
	conf.OpenAI.Model = v.GetString("openai.model")

	conf.Onboarding.LockTTL = v.GetDuration("onboarding.lockTTL")

	return conf
}
