// Package notifications delivers render job events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, and
// per-event toggles in the [notifications] config section silence job
// completion or failure messages individually. Workflow code depends only on
// the Service interface.
package notifications
