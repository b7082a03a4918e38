package app

import (
	"context"
	"log"
	"time"

	"github.com/breadtm/examtie/internal/session"
)

const defaultCheckInterval = 30 * time.Minute

// StartValidityPoller launches a background goroutine that re-checks the
// persisted token at a fixed cadence, logging the session out when it has
// expired. It returns immediately.
func StartValidityPoller(ctx context.Context, sess *session.Session, interval time.Duration) {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !sess.Current().Authenticated {
				continue
			}
			if !sess.CheckTokenValidity() {
				log.Printf("session token expired; logged out")
			}
		}
	}()
}
