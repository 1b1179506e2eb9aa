package mqtt

import (
	"fmt"
	"strings"
)

// Connection-state payloads published on the connected topic.
//
// The last will registered at connect time carries DisconnectedPayload so
// subscribers observe an unexpected death; ConnectedPayload is published
// (retained) once the daemon is serving, and DisconnectedPayload again on
// graceful shutdown.
const (
	ConnectedPayload    = "2"
	DisconnectedPayload = "0"
)

// QoSAtLeastOnce is the delivery level used for every gateway publish and
// subscription. State topics are retained, so at-least-once plus retention
// gives late subscribers the current value without exactly-once overhead.
const QoSAtLeastOnce byte = 1

// Topics builds gateway topic strings under a configured base prefix.
// Using these helpers keeps the topic scheme consistent between the
// publishing side and the subscription installer.
//
//	topics := mqtt.NewTopics("mwha/")
//	topics.ZoneStatus("12", "volume") // "mwha/status/zone/12/volume"
//	topics.ZoneSet("12", "mute")      // "mwha/set/zone/12/mute"
type Topics struct {
	base string
}

// NewTopics returns a Topics rooted at base.
//
// A non-empty base is normalized to end with exactly one "/" so callers can
// configure either "mwha" or "mwha/". Validation of the base string itself
// (no wildcards, non-empty) belongs to the config layer.
func NewTopics(base string) Topics {
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return Topics{base: base}
}

// Base returns the normalized topic prefix, including the trailing slash.
func (t Topics) Base() string {
	return t.base
}

// Connected returns the connection-state topic.
//
// Example: mwha/connected
func (t Topics) Connected() string {
	return t.base + "connected"
}

// ZoneStatus returns the retained state topic for one zone attribute.
//
// Example: mwha/status/zone/12/volume
func (t Topics) ZoneStatus(zone, attribute string) string {
	return fmt.Sprintf("%sstatus/zone/%s/%s", t.base, zone, attribute)
}

// ZoneSet returns the command topic for one writable zone attribute.
//
// Example: mwha/set/zone/12/volume
func (t Topics) ZoneSet(zone, attribute string) string {
	return fmt.Sprintf("%sset/zone/%s/%s", t.base, zone, attribute)
}

// ZoneName returns the retained metadata topic for a zone's display name.
//
// Example: mwha/status/zone/12/name
func (t Topics) ZoneName(zone string) string {
	return fmt.Sprintf("%sstatus/zone/%s/name", t.base, zone)
}

// ZoneType returns the retained metadata topic for a zone's hierarchy level
// ("zone", "amp" or "system").
//
// Example: mwha/status/zone/12/type
func (t Topics) ZoneType(zone string) string {
	return fmt.Sprintf("%sstatus/zone/%s/type", t.base, zone)
}

// Zones returns the retained topic listing every configured zone id.
//
// Example: mwha/status/zones
func (t Topics) Zones() string {
	return t.base + "status/zones"
}

// SourceName returns the retained metadata topic for a source's display name.
//
// Example: mwha/status/source/01/name
func (t Topics) SourceName(source string) string {
	return fmt.Sprintf("%sstatus/source/%s/name", t.base, source)
}

// SourceEnabled returns the retained metadata topic for a source's enabled flag.
//
// Example: mwha/status/source/01/enabled
func (t Topics) SourceEnabled(source string) string {
	return fmt.Sprintf("%sstatus/source/%s/enabled", t.base, source)
}
