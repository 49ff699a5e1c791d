// Package events provides the event types and interfaces that decouple
// the cart service from the reminder scheduler.
//
// The service emits a TaskRequestEvent when a reminder should be
// evaluated at a future instant; a handler in the task package turns it
// into a persisted, delayed job. Neither side imports the other's
// concrete types, which keeps the scheduling mechanism swappable.
package events
