package tasks

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Purger drops entries that outlived their usefulness.
type Purger interface {
	Purge()
}

// CleanExpiredEntries purges every purger once per interval until ctx is done.
func CleanExpiredEntries(ctx context.Context, interval time.Duration, purgers ...Purger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			for _, purger := range purgers {
				purger.Purge()
			}
			log.Debugf("Purged %d in-memory stores", len(purgers))
		}
	}
}
