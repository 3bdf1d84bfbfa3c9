// Package schedule computes a campaign's next fire instant from its cron
// expression. The expression is always evaluated in the campaign's resolved
// timezone; evaluating it against the process-local clock would silently shift
// every slot by the zone offset.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/timeutil"
)

// ErrNoRecurrence means the campaign has no cron expression configured.
var ErrNoRecurrence = errors.New("no recurrence configured")

// NextInstant parses expr and returns the first fire instant after now,
// evaluated in the named timezone. Pure: no hidden clock.
func NextInstant(expr, tz string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return time.Time{}, ErrNoRecurrence
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	sched, err := cronv3.ParseStandard(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", raw, err)
	}

	return sched.Next(now.In(loc)).UTC(), nil
}

// NextSlot resolves the campaign's timezone and returns its next slot after
// now. The ok result is false when the campaign has no usable recurrence; the
// caller logs and skips, it never aborts the cycle.
func NextSlot(c *model.Campaign, now time.Time) (time.Time, bool, error) {
	tz := timeutil.ResolveTimezone(c.Timezone)
	next, err := NextInstant(c.Schedule, tz, now)
	if err != nil {
		if errors.Is(err, ErrNoRecurrence) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return next, true, nil
}
