package reminderpolicy

import (
	"time"

	"github.com/jmolloy/cartminder/internal/domain"
)

// Intervals maps each reminder step to the delay between its anchor
// timestamp and its due time. A step missing from the map is permanently
// unschedulable.
type Intervals map[domain.ReminderStep]time.Duration

// IntervalsConfig holds per-step interval lengths in hours, as read from
// configuration. Fractional hours are permitted, which keeps sub-minute
// intervals available for testing. A zero or negative value means the
// step is not scheduled.
type IntervalsConfig struct {
	FirstHours  float64
	SecondHours float64
	ThirdHours  float64
}

// NewDefaultIntervals returns the standard reminder cadence: four hours
// after cart creation, then one day and three days between follow-ups.
func NewDefaultIntervals() Intervals {
	return Intervals{
		domain.ReminderStepFirst:  4 * time.Hour,
		domain.ReminderStepSecond: 24 * time.Hour,
		domain.ReminderStepThird:  72 * time.Hour,
	}
}

// NewIntervals builds an Intervals set from configuration. Steps with a
// non-positive configured value are left out entirely rather than mapped
// to zero, so they read as unschedulable.
func NewIntervals(cfg IntervalsConfig) Intervals {
	intervals := make(Intervals, 3)

	set := func(step domain.ReminderStep, hours float64) {
		if hours > 0 {
			intervals[step] = time.Duration(hours * float64(time.Hour))
		}
	}

	set(domain.ReminderStepFirst, cfg.FirstHours)
	set(domain.ReminderStepSecond, cfg.SecondHours)
	set(domain.ReminderStepThird, cfg.ThirdHours)

	return intervals
}
