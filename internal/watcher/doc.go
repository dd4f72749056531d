// Package watcher holds the domain model and the check orchestrator for the
// map version watcher.
//
// A check reads the most recent known version (today's or yesterday's date
// key), fetches the currently published version, stores it under today's
// key, and when it differs from the previous value writes a change record
// and notifies subscribers. Fetch and persist failures are reported by
// notification when possible and always returned to the caller, so a
// scheduled run is marked failed and retried by the next trigger.
//
// Concurrent checks on the same day may both record a change; the trigger is
// expected to fire at most once per day and no locking is attempted.
package watcher
