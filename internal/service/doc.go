// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// The central piece is CartService, which implements the cart lifecycle
// commands (create, add item, click, finalize) and the fire-time reminder
// evaluation. Lifecycle commands run as load-mutate-save cycles under a
// row-level lock so concurrent updates to the same cart serialize.
// Reminder scheduling is requested through the event emitter rather than
// by calling the scheduler directly, keeping the service free of any
// dependency on task execution infrastructure.
//
// Services receive dependencies through constructor injection and
// translate store-level errors into application-level errors meaningful
// to API responses.
package service
