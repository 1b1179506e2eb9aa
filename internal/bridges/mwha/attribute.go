package mwha

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// AttributeKind identifies one of the ten per-zone attributes, in the
// order the amplifier reports them within an enquiry response.
type AttributeKind uint8

// Attribute kinds in wire order.
const (
	AttrPublicAnnouncement AttributeKind = iota
	AttrPower
	AttrMute
	AttrDoNotDisturb
	AttrVolume
	AttrTreble
	AttrBass
	AttrBalance
	AttrSource
	AttrKeypadConnected
)

// NumAttributes is the size of the full per-zone attribute set.
const NumAttributes = 10

// attributeInfo describes the fixed properties of one attribute kind.
type attributeInfo struct {
	name    string // kebab-case topic fragment
	code    string // serial set-command code, empty for report-only kinds
	min     uint8
	max     uint8
	boolean bool
}

var attributeTable = [NumAttributes]attributeInfo{
	AttrPublicAnnouncement: {name: "public-announcement", max: 1, boolean: true},
	AttrPower:              {name: "power", code: "PR", max: 1, boolean: true},
	AttrMute:               {name: "mute", code: "MU", max: 1, boolean: true},
	AttrDoNotDisturb:       {name: "do-not-disturb", code: "DT", max: 1, boolean: true},
	AttrVolume:             {name: "volume", code: "VO", max: 38},
	AttrTreble:             {name: "treble", code: "TR", max: 14},
	AttrBass:               {name: "bass", code: "BS", max: 14},
	AttrBalance:            {name: "balance", code: "BL", max: 20},
	AttrSource:             {name: "source", code: "CH", min: 1, max: MaxSources},
	AttrKeypadConnected:    {name: "keypad-connected", max: 1, boolean: true},
}

// AttributeKinds returns all kinds in wire order.
func AttributeKinds() []AttributeKind {
	kinds := make([]AttributeKind, NumAttributes)
	for i := range kinds {
		kinds[i] = AttributeKind(i)
	}
	return kinds
}

// WritableAttributeKinds returns the kinds that accept set commands,
// in wire order.
func WritableAttributeKinds() []AttributeKind {
	kinds := make([]AttributeKind, 0, NumAttributes)
	for _, k := range AttributeKinds() {
		if !k.ReadOnly() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (k AttributeKind) valid() bool {
	return int(k) < NumAttributes
}

// String returns the kebab-case name used as the topic fragment.
//
// Example: "volume", "do-not-disturb"
func (k AttributeKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("attribute(%d)", uint8(k))
	}
	return attributeTable[k].name
}

// ReadOnly reports whether the amplifier accepts no set command for
// this kind. Public announcement state and keypad presence are
// reported by the device but never written.
func (k AttributeKind) ReadOnly() bool {
	return !k.valid() || attributeTable[k].code == ""
}

// Bool reports whether the kind carries a boolean value on the bus.
func (k AttributeKind) Bool() bool {
	return k.valid() && attributeTable[k].boolean
}

// Range returns the raw value range the device accepts for this kind.
func (k AttributeKind) Range() (min, max uint8) {
	if !k.valid() {
		return 0, 0
	}
	info := attributeTable[k]
	return info.min, info.max
}

// commandCode returns the two-letter serial command code, or "" for
// report-only kinds.
func (k AttributeKind) commandCode() string {
	if !k.valid() {
		return ""
	}
	return attributeTable[k].code
}

// Attribute pairs a kind with a raw device value. Boolean kinds use
// 0 and 1.
type Attribute struct {
	Kind  AttributeKind
	Value uint8
}

// NewBoolAttribute builds a boolean-kinded attribute from a bool.
func NewBoolAttribute(kind AttributeKind, on bool) Attribute {
	var value uint8
	if on {
		value = 1
	}
	return Attribute{Kind: kind, Value: value}
}

// Validate checks the value against the kind's device range.
//
// Returns:
//   - error: ErrValueOutOfRange naming the kind, value and allowed range
func (a Attribute) Validate() error {
	min, max := a.Kind.Range()
	if a.Value < min || a.Value > max {
		return fmt.Errorf("%w: %s must be %d-%d, got %d", ErrValueOutOfRange, a.Kind, min, max, a.Value)
	}
	return nil
}

// AsBool interprets the raw value as a boolean (non-zero is true).
func (a Attribute) AsBool() bool {
	return a.Value != 0
}

// String renders the attribute for logs.
//
// Example: "volume=22", "power=true"
func (a Attribute) String() string {
	if a.Kind.Bool() {
		return fmt.Sprintf("%s=%t", a.Kind, a.AsBool())
	}
	return fmt.Sprintf("%s=%d", a.Kind, a.Value)
}

// MarshalPayload renders the value as the bare JSON scalar published
// on the bus: true/false for boolean kinds, the plain number otherwise.
func (a Attribute) MarshalPayload() []byte {
	if a.Kind.Bool() {
		if a.AsBool() {
			return []byte("true")
		}
		return []byte("false")
	}
	return strconv.AppendUint(nil, uint64(a.Value), 10)
}

// UnmarshalPayload parses a bus payload for the given kind: a JSON
// boolean for boolean kinds, a JSON number for numeric kinds. The
// decoded value is range-checked.
//
// Parameters:
//   - kind:    Attribute kind the payload is addressed to
//   - payload: Raw bus payload
//
// Returns:
//   - Attribute: Decoded, validated attribute
//   - error: Decode or ErrValueOutOfRange failure
func UnmarshalPayload(kind AttributeKind, payload []byte) (Attribute, error) {
	if !utf8.Valid(payload) {
		return Attribute{}, fmt.Errorf("%s payload is not valid UTF-8", kind)
	}

	var attr Attribute
	if kind.Bool() {
		var on bool
		if err := json.Unmarshal(payload, &on); err != nil {
			return Attribute{}, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		attr = NewBoolAttribute(kind, on)
	} else {
		var value uint8
		if err := json.Unmarshal(payload, &value); err != nil {
			return Attribute{}, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		attr = Attribute{Kind: kind, Value: value}
	}

	if err := attr.Validate(); err != nil {
		return Attribute{}, err
	}
	return attr, nil
}

// ZoneStatus is the full ordered attribute set of one zone as carried
// by a single enquiry response.
type ZoneStatus struct {
	Zone       ZoneID
	Attributes [NumAttributes]Attribute
}

// Attribute returns the status value for one kind.
func (zs ZoneStatus) Attribute(kind AttributeKind) Attribute {
	if !kind.valid() {
		return Attribute{Kind: kind}
	}
	return zs.Attributes[kind]
}
