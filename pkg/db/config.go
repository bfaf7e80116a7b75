package db

import (
	"strings"
	"time"

	"github.com/smallbiznis/taxengine/internal/config"
)

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	// Stats exports connection pool stats through the gorm prometheus plugin.
	Stats bool
	// LogLevel is one of silent, error, warn or info.
	LogLevel      string
	SlowThreshold time.Duration
}

// NewConfig picks the database settings out of the process config.
func NewConfig(cfg config.Config) Config {
	return Config{
		Type:            strings.ToLower(strings.TrimSpace(cfg.DBType)),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		Stats:           cfg.DBStats,
		LogLevel:        cfg.DBLogLevel,
		SlowThreshold:   time.Duration(cfg.DBSlowQueryMs) * time.Millisecond,
	}
}
