// Package task manages delayed background job scheduling, execution, and
// lifecycle. It implements the one-task-per-cart-per-step dispatch model
// for abandonment reminders: each scheduled job is a one-shot evaluation
// that fires at or after its due time, re-checks eligibility against
// current cart state, and recovers from application restarts.
package task
