package domain

// ReminderStep identifies one of the three ordered abandonment reminders
// that may be sent for an open cart.
type ReminderStep string

// Possible reminder step values, in sending order.
const (
	ReminderStepFirst  ReminderStep = "first"
	ReminderStepSecond ReminderStep = "second"
	ReminderStepThird  ReminderStep = "third"
)

// OrderedReminderSteps returns the fixed sending sequence.
// The returned slice is a fresh copy on every call, so callers may not
// mutate shared state through it.
func OrderedReminderSteps() []ReminderStep {
	return []ReminderStep{ReminderStepFirst, ReminderStepSecond, ReminderStepThird}
}

// Next returns the step that follows s in the sending sequence.
// The second return value is false when s is the last step (or not a
// valid step at all).
func (s ReminderStep) Next() (ReminderStep, bool) {
	switch s {
	case ReminderStepFirst:
		return ReminderStepSecond, true
	case ReminderStepSecond:
		return ReminderStepThird, true
	default:
		return "", false
	}
}

// IsValid reports whether s is one of the three known steps.
func (s ReminderStep) IsValid() bool {
	switch s {
	case ReminderStepFirst, ReminderStepSecond, ReminderStepThird:
		return true
	default:
		return false
	}
}
