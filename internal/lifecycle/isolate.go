package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// classifyIsolated corre Classify en su propia goroutine con timeout. Un probe colgado o un
// panic sólo afectan a esta plataforma: el resultado es ERROR y el caller sigue.
func classifyIsolated(ctx context.Context, c *Classifier, p repository.Platform, conn repository.PlatformConnection, timeout time.Duration) HealthResult {
	if !conn.Connected() {
		return c.Classify(ctx, p, conn)
	}
	if err := ctx.Err(); err != nil {
		return errorResult(c, p, conn, fmt.Errorf("%w: %s: %w", repository.ErrProbeFailed, p, err))
	}

	pctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ch := make(chan HealthResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- errorResult(c, p, conn, fmt.Errorf("probe panic on %s: %v", p, rec))
			}
		}()
		ch <- c.Classify(pctx, p, conn)
	}()

	select {
	case r := <-ch:
		return r
	case <-pctx.Done():
		return errorResult(c, p, conn, fmt.Errorf("%w: %s: %w", repository.ErrProbeFailed, p, pctx.Err()))
	}
}

func errorResult(c *Classifier, p repository.Platform, conn repository.PlatformConnection, err error) HealthResult {
	r := HealthResult{
		Platform:        p,
		Status:          StatusError,
		HasRefreshToken: conn.HasRefreshToken(),
		TokenExpiry:     conn.TokenExpiry,
		LastValidated:   conn.LastValidated,
		IsExpired:       c.IsExpired(conn),
		CheckedAt:       c.now(),
	}
	r.setErr(err)
	return r
}
