package broker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type PostgresConfig struct {
	DSN   string
	Table string
	// CreateTable issues CREATE TABLE IF NOT EXISTS on Start.
	CreateTable bool
}

func (c *PostgresConfig) ApplyDefaults() {
	if c.Table == "" {
		c.Table = "sensor_records"
	}
}

func (c *PostgresConfig) Validate() error {
	if !identPattern.MatchString(c.Table) {
		return fmt.Errorf("postgres: invalid table name %q", c.Table)
	}
	return nil
}

// Postgres archives every payload as a row of (topic, payload, emitted_at).
type Postgres struct {
	cfg PostgresConfig
	now func() time.Time

	mu      sync.Mutex
	db      *sql.DB
	ownsDB  bool
	started bool
}

func NewPostgres(cfg PostgresConfig) (*Postgres, error) {
	cfg.ApplyDefaults()
	if cfg.DSN == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Postgres{cfg: cfg, now: time.Now, ownsDB: true}, nil
}

// NewPostgresWithDB uses an already opened handle; Stop leaves it open.
func NewPostgresWithDB(db *sql.DB, cfg PostgresConfig) (*Postgres, error) {
	cfg.ApplyDefaults()
	if db == nil {
		return nil, errors.New("postgres: db is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Postgres{cfg: cfg, now: time.Now, db: db}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	if p.db == nil {
		db, err := sql.Open("postgres", p.cfg.DSN)
		if err != nil {
			return fmt.Errorf("%w: postgres open: %w", domain.ErrSinkUnavailable, err)
		}
		p.db = db
	}
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: postgres ping: %w", domain.ErrSinkUnavailable, err)
	}
	if p.cfg.CreateTable {
		if _, err := p.db.ExecContext(ctx, p.createTableSQL()); err != nil {
			return fmt.Errorf("%w: postgres create table: %w", domain.ErrSinkUnavailable, err)
		}
	}
	p.started = true
	return nil
}

func (p *Postgres) createTableSQL() string {
	return "CREATE TABLE IF NOT EXISTS " + p.cfg.Table +
		" (id BIGSERIAL PRIMARY KEY, topic TEXT NOT NULL, payload JSONB NOT NULL, emitted_at TIMESTAMPTZ NOT NULL)"
}

func (p *Postgres) insertSQL() string {
	return "INSERT INTO " + p.cfg.Table + " (topic, payload, emitted_at) VALUES ($1,$2,$3)"
}

func (p *Postgres) Send(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	db, started := p.db, p.started
	p.mu.Unlock()
	if !started {
		return fmt.Errorf("%w: postgres not started", domain.ErrSinkUnavailable)
	}

	if _, err := db.ExecContext(ctx, p.insertSQL(), topic, string(payload), p.now().UTC()); err != nil {
		return fmt.Errorf("%w: postgres insert: %w", domain.ErrSinkSendFailed, err)
	}
	return nil
}

func (p *Postgres) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	p.started = false
	if !p.ownsDB || p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

var _ ports.Broker = (*Postgres)(nil)
