package scheduler

import (
	"context"
	"time"

	"github.com/netoalmanca/crypto-trader/internal/logger"
)

// Run executes fn immediately and then once per interval until the context is
// cancelled. Errors from fn are logged and do not stop the loop.
func Run(ctx context.Context, name string, every time.Duration, fn func(context.Context) error) {
	run := func() {
		if err := fn(ctx); err != nil {
			logger.Errorf("job %s: %v", name, err)
		}
	}
	run()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("job %s stopped", name)
			return
		case <-ticker.C:
			run()
		}
	}
}
