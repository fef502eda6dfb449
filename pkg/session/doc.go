// Package session implements the client-side view of one device: a typed
// remote interface over the messaging fabric that caches the latest state
// and playlists, correlates command responses by ID with a bounded wait, and
// surfaces changes as events.
package session
