package postgres

import (
	"fmt"
	"time"
)

// Config holds PostgreSQL connection settings
type Config struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	PoolSize        int
	ConnectTimeout  time.Duration
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns sensible defaults for a local database
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		Name:            "kelime",
		User:            "kelime",
		SSLMode:         "disable",
		PoolSize:        10,
		ConnectTimeout:  10 * time.Second,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// DSN renders the connection string
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}
