// ABOUTME: Topic model for a device namespace
// ABOUTME: Builds and parses {prefix}/{deviceId}/{kind} topic strings
package broker

import "strings"

// TopicKind identifies one of the four canonical topics in a device
// namespace.
type TopicKind string

const (
	TopicState      TopicKind = "state"
	TopicCommands   TopicKind = "commands"
	TopicResponses  TopicKind = "responses"
	TopicConnection TopicKind = "connection"
)

// DefaultTopicPrefix is the namespace prefix used when none is configured.
const DefaultTopicPrefix = "amora/devices"

// Topics computes the canonical topic strings for one (prefix, deviceId)
// namespace. It has no state beyond the two identifiers.
type Topics struct {
	Prefix   string
	DeviceID string
}

// NewTopics returns a topic helper for the given namespace; an empty prefix
// falls back to DefaultTopicPrefix.
func NewTopics(prefix, deviceID string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix, DeviceID: deviceID}
}

// Topic returns the full topic string for the given kind.
func (t Topics) Topic(kind TopicKind) string {
	return t.Prefix + "/" + t.DeviceID + "/" + string(kind)
}

func (t Topics) State() string      { return t.Topic(TopicState) }
func (t Topics) Commands() string   { return t.Topic(TopicCommands) }
func (t Topics) Responses() string  { return t.Topic(TopicResponses) }
func (t Topics) Connection() string { return t.Topic(TopicConnection) }

// Parse classifies a concrete topic string. It returns the kind and true
// when the topic belongs to this namespace and names a known kind.
// No wildcards are accepted.
func (t Topics) Parse(topic string) (TopicKind, bool) {
	base := t.Prefix + "/" + t.DeviceID + "/"
	if !strings.HasPrefix(topic, base) {
		return "", false
	}
	switch kind := TopicKind(topic[len(base):]); kind {
	case TopicState, TopicCommands, TopicResponses, TopicConnection:
		return kind, true
	default:
		return "", false
	}
}

// ParseTopic classifies a topic without a known namespace. It splits off the
// final segment as the kind and returns the remaining prefix and device ID.
func ParseTopic(topic string) (prefix, deviceID string, kind TopicKind, ok bool) {
	i := strings.LastIndexByte(topic, '/')
	if i < 0 {
		return "", "", "", false
	}
	switch k := TopicKind(topic[i+1:]); k {
	case TopicState, TopicCommands, TopicResponses, TopicConnection:
		kind = k
	default:
		return "", "", "", false
	}
	rest := topic[:i]
	j := strings.LastIndexByte(rest, '/')
	if j < 0 {
		return "", "", "", false
	}
	prefix, deviceID = rest[:j], rest[j+1:]
	if prefix == "" || deviceID == "" || strings.ContainsAny(deviceID, "+#") {
		return "", "", "", false
	}
	return prefix, deviceID, kind, true
}
