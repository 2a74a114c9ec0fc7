package database

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Baalavignesh/DiggerMan/internal/config"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	driver string
}

// Config holds database configuration
type Config struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"digger"`
	Password        string        `env:"DB_PASSWORD" envDefault:"digger_password"`
	DBName          string        `env:"DB_NAME" envDefault:"digger_db"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	Path            string        `env:"DB_PATH" envDefault:"diggerman.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`
}

// LoadConfigFromEnv loads database configuration from environment variables
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	return cfg, nil
}

func (c *Config) dsn() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		), nil
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// NewConnection creates a new database connection with the provided configuration
func NewConnection(cfg *Config) (*DB, error) {
	connStr, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		log.Printf("[Database] Connected to sqlite at %s", cfg.Path)
	} else {
		log.Printf("[Database] Connected to %s:%s/%s", cfg.Host, cfg.Port, cfg.DBName)
	}
	log.Printf("[Database] Pool config: MaxOpen=%d, MaxIdle=%d", cfg.MaxOpenConns, cfg.MaxIdleConns)

	return &DB{DB: db, driver: cfg.Driver}, nil
}

// InitSchema creates the key-value and sorted-set tables if they don't exist
func (db *DB) InitSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key VARCHAR(512) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS zset_members (
			set_key VARCHAR(512) NOT NULL,
			member VARCHAR(255) NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (set_key, member)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_zset_members_score ON zset_members(set_key, score)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Println("[Database] Schema initialized")
	return nil
}

// rebind rewrites ? placeholders into $N for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
