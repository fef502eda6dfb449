// Package broker holds the wire contract shared by devices and clients: the
// four-topic namespace model, the JSON envelope codec, the transport
// capability with its MQTT implementation, and the configuration and error
// taxonomy used across the SDK.
package broker
