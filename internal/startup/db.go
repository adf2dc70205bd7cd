package startup

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yogastudio/internal/logger"
)

// ConnectDBWithRetry connects to Postgres, retrying with backoff until maxWait
// so the API survives a database that starts slower than it does.
func ConnectDBWithRetry(poolCfg *pgxpool.Config, maxWait time.Duration) *pgxpool.Pool {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	retry := func(what string, err error) {
		if time.Now().After(deadline) {
			logger.Errorf("db %s (gave up after %v): %v", what, maxWait, err)
			os.Exit(1)
		}
		logger.Errorf("db %s failed, retry in %v: %v", what, backoff, err)
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		cancel()
		if err != nil {
			retry("connect", err)
			continue
		}
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = pool.Ping(pingCtx)
		pingCancel()
		if err != nil {
			pool.Close()
			retry("ping", err)
			continue
		}
		return pool
	}
}
