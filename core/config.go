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

type (
	ServerConfig struct {
		Addr            string
		DebugAddr       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine     string // memory | postgres | sqlite
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		DisableTLS bool
		Path       string // sqlite only
	}

	StudyConfig struct {
		MidCutoff     float64
		HighCutoff    float64
		QuotaLow      int
		QuotaMid      int
		QuotaHigh     int
		MinAvgRating  float64
		MaxRating     float64
		SweepInterval time.Duration
		RandomSeed    int64
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Study    StudyConfig
	}
)

func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration from defaults, config/.env.<env> and the environment.
// Environment keys are prefixed with the current ENV, e.g. DEV_SERVER_ADDR.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "StudyGroups")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k2#r8v!qz0@dmw7$ypl4^tbx9&ns3e6h")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugAddr", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "studygroups")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "studygroups.db")

	v.SetDefault("study.midCutoff", 40.0)
	v.SetDefault("study.highCutoff", 75.0)
	v.SetDefault("study.quotaLow", 2)
	v.SetDefault("study.quotaMid", 3)
	v.SetDefault("study.quotaHigh", 2)
	v.SetDefault("study.minAvgRating", 2.0)
	v.SetDefault("study.maxRating", 5.0)
	v.SetDefault("study.sweepInterval", time.Hour)
	v.SetDefault("study.randomSeed", int64(0))

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
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			DebugAddr:       v.GetString("server.debugAddr"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:     strings.ToLower(v.GetString("database.engine")),
			Host:       v.GetString("database.host"),
			Port:       v.GetString("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			Name:       v.GetString("database.name"),
			DisableTLS: v.GetBool("database.disableTLS"),
			Path:       v.GetString("database.path"),
		},
		Study: StudyConfig{
			MidCutoff:     v.GetFloat64("study.midCutoff"),
			HighCutoff:    v.GetFloat64("study.highCutoff"),
			QuotaLow:      v.GetInt("study.quotaLow"),
			QuotaMid:      v.GetInt("study.quotaMid"),
			QuotaHigh:     v.GetInt("study.quotaHigh"),
			MinAvgRating:  v.GetFloat64("study.minAvgRating"),
			MaxRating:     v.GetFloat64("study.maxRating"),
			SweepInterval: v.GetDuration("study.sweepInterval"),
			RandomSeed:    v.GetInt64("study.randomSeed"),
		},
	}
}
