package cache

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ytanalyzer/logger"
)

// StartPruner runs Prune on the given cron schedule until the returned stop function
// is called.
func StartPruner(s *Store, schedule string, maxAge time.Duration) (stop func(), err error) {
	if !s.Enabled() || maxAge <= 0 || schedule == "" {
		return func() {}, nil
	}

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		n, err := s.Prune(maxAge)
		if err != nil {
			logger.Warnf("Cache prune failed: %v", err)
			return
		}
		if n > 0 {
			logger.Infof("Cache prune removed %d file(s) older than %s", n, maxAge)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cache pruner: schedule %q: %w", schedule, err)
	}
	c.Start()
	logger.Infof("Cache pruner started (schedule=%q, lifetime=%s)", schedule, maxAge)
	return func() { <-c.Stop().Done() }, nil
}
