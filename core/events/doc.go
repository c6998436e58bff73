// Package events defines the dispatch board events emitted on the event bus.
//
// Available event types:
//   - OperationEvent: an operation was applied, undone or redone, or failed to apply
//   - RejectionEvent: an action was refused by a constraint check
//   - BusyEvent: a mutating action was dropped while another apply was in flight
package events
