// Package reminderpolicy decides whether, when, and in what order
// abandonment reminders may be sent for a cart. All of its operations
// are synchronous pure computation over a cart snapshot; persistence
// and delivery live elsewhere.
package reminderpolicy

import (
	"time"

	"github.com/jmolloy/cartminder/internal/domain"
)

// Service defines the reminder scheduling policy.
type Service interface {
	// CanSchedule reports whether the step has a configured interval at all.
	CanSchedule(step domain.ReminderStep) bool

	// DueAt computes the earliest instant the step's reminder may fire.
	// The second return value is false when the step has no configured
	// interval or its anchor timestamp is absent (e.g. the second
	// reminder before the first has been sent).
	DueAt(cart *domain.Cart, step domain.ReminderStep) (time.Time, bool)

	// ShouldSend is the scheduling gate: it holds only when the step is
	// schedulable, the cart is open, the step's dependency is satisfied,
	// the step has not already been sent, and now is at or past the due
	// time. It never fails; any missing precondition yields false.
	ShouldSend(cart *domain.Cart, step domain.ReminderStep, now time.Time) bool

	// SecondsUntilDue returns the whole seconds remaining until the
	// step's due time, clamped at zero for past-due steps. The second
	// return value is false when DueAt is undefined.
	SecondsUntilDue(cart *domain.Cart, step domain.ReminderStep, now time.Time) (int64, bool)

	// NextSchedule describes the follow-up task after the given step has
	// been sent: the next step and the UTC instant at which it should be
	// re-evaluated. The third return value is false when the sequence is
	// exhausted, the next step is unschedulable, or its due time is
	// undefined.
	NextSchedule(cart *domain.Cart, step domain.ReminderStep) (domain.ReminderStep, time.Time, bool)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	intervals Intervals
}

// NewService creates a reminder policy service with the given intervals.
// A nil map is accepted and renders every step unschedulable.
func NewService(intervals Intervals) Service {
	return &defaultService{intervals: intervals}
}

// NewDefaultService creates a reminder policy service with the standard
// 4h / 24h / 72h cadence.
func NewDefaultService() Service {
	return &defaultService{intervals: NewDefaultIntervals()}
}

// CanSchedule implements Service.CanSchedule.
func (s *defaultService) CanSchedule(step domain.ReminderStep) bool {
	_, ok := s.intervals[step]
	return ok
}

// DueAt implements Service.DueAt. The first reminder is anchored on the
// cart's creation time; every later step is anchored on its
// predecessor's sent time.
func (s *defaultService) DueAt(cart *domain.Cart, step domain.ReminderStep) (time.Time, bool) {
	if cart == nil {
		return time.Time{}, false
	}

	interval, ok := s.intervals[step]
	if !ok {
		return time.Time{}, false
	}

	anchor, ok := anchorTime(cart, step)
	if !ok {
		return time.Time{}, false
	}

	return anchor.Add(interval).UTC(), true
}

// ShouldSend implements Service.ShouldSend.
func (s *defaultService) ShouldSend(cart *domain.Cart, step domain.ReminderStep, now time.Time) bool {
	if cart == nil {
		return false
	}

	if !s.CanSchedule(step) {
		return false
	}

	if cart.IsClosed() {
		return false
	}

	if !dependencySatisfied(cart, step) {
		return false
	}

	if cart.HasReminderBeenSent(step) {
		return false
	}

	dueAt, ok := s.DueAt(cart, step)
	if !ok {
		return false
	}

	return !now.Before(dueAt)
}

// SecondsUntilDue implements Service.SecondsUntilDue.
func (s *defaultService) SecondsUntilDue(
	cart *domain.Cart,
	step domain.ReminderStep,
	now time.Time,
) (int64, bool) {
	dueAt, ok := s.DueAt(cart, step)
	if !ok {
		return 0, false
	}

	seconds := int64(dueAt.Sub(now) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return seconds, true
}

// NextSchedule implements Service.NextSchedule.
func (s *defaultService) NextSchedule(
	cart *domain.Cart,
	step domain.ReminderStep,
) (domain.ReminderStep, time.Time, bool) {
	next, ok := step.Next()
	if !ok {
		return "", time.Time{}, false
	}

	if !s.CanSchedule(next) {
		return "", time.Time{}, false
	}

	dueAt, ok := s.DueAt(cart, next)
	if !ok {
		return "", time.Time{}, false
	}

	return next, dueAt, true
}

// anchorTime returns the timestamp the step's interval is measured from.
func anchorTime(cart *domain.Cart, step domain.ReminderStep) (time.Time, bool) {
	switch step {
	case domain.ReminderStepFirst:
		return cart.CreatedAt, true
	case domain.ReminderStepSecond:
		return cart.ReminderSentTime(domain.ReminderStepFirst)
	case domain.ReminderStepThird:
		return cart.ReminderSentTime(domain.ReminderStepSecond)
	default:
		return time.Time{}, false
	}
}

// dependencySatisfied reports whether the step's predecessor has been
// sent. Vacuously true for the first step.
func dependencySatisfied(cart *domain.Cart, step domain.ReminderStep) bool {
	switch step {
	case domain.ReminderStepFirst:
		return true
	case domain.ReminderStepSecond:
		return cart.HasReminderBeenSent(domain.ReminderStepFirst)
	case domain.ReminderStepThird:
		return cart.HasReminderBeenSent(domain.ReminderStepSecond)
	default:
		return false
	}
}
