// Package postgres persists finished runs to PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/config"
)

// ApplicationName tags every hexdraft connection in pg_stat_activity.
const ApplicationName = "hexdraft"

// ErrHistoryDisabled is returned by NewPool when run history is switched off.
var ErrHistoryDisabled = errors.New("run history is disabled")

// Pool wraps the pgx pool that backs run history.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects the run-history pool described by cfg.
//
// Precondition: cfg.Enabled must be true and cfg must hold valid connection parameters.
// Postcondition: Returns a pinged Pool, ErrHistoryDisabled, or another non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	if !cfg.Enabled {
		return nil, ErrHistoryDisabled
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Health checks that the database answers within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Monitor pings the database every interval until done is closed, logging failed
// checks at Warn and the first success after a failure at Info. Runs are still
// accepted while the database is down; Record reports the error per run.
//
// Precondition: interval and timeout must be > 0.
func (p *Pool) Monitor(done <-chan struct{}, interval, timeout time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := p.Health(context.Background(), timeout)
			switch {
			case err != nil:
				logger.Warn("run history database unreachable", zap.Error(err))
				healthy = false
			case !healthy:
				logger.Info("run history database reachable again")
				healthy = true
			}
		}
	}
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for RunRepository.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
