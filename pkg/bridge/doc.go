// Package bridge implements the device-side runtime: a command dispatcher
// answering client commands against the local player capability, and a
// status publisher streaming retained state snapshots with bounded latency.
// One Bridge instance serves one device namespace; multiple instances may
// coexist in a process.
package bridge
