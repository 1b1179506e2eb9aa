package mwha

import (
	"fmt"
	"strconv"
)

// Amplifier chain limits for the MPR-6ZHMAUT protocol family.
const (
	// MaxAmps is the number of amplifier units one serial chain can carry.
	MaxAmps = 3

	// MaxZonesPerAmp is the number of output zones on each amplifier unit.
	MaxZonesPerAmp = 6

	// MaxSources is the number of selectable input sources.
	MaxSources = 6
)

// ZoneID addresses a node in the three-level amplifier hierarchy.
//
// Levels:
//   - System: the whole chain (Amp == 0)
//   - Amp:    one amplifier unit (Amp 1-3, Zone == 0)
//   - Zone:   one output zone (Amp 1-3, Zone 1-6)
//
// The zero value is the System id. On the wire a ZoneID is one byte,
// Amp*10 + Zone: System = 00, amp 2 = 20, zone 6 of amp 3 = 36.
type ZoneID struct {
	Amp  uint8
	Zone uint8
}

// System addresses the entire amplifier chain.
var System = ZoneID{}

// NewAmp returns the id of one amplifier unit.
//
// Parameters:
//   - amp: Amplifier number, 1-3
//
// Returns:
//   - ZoneID: Amp-level id
//   - error: ErrAmpOutOfRange if amp is not 1-3
func NewAmp(amp uint8) (ZoneID, error) {
	if amp < 1 || amp > MaxAmps {
		return ZoneID{}, fmt.Errorf("%w: amp must be 1-%d, got %d", ErrAmpOutOfRange, MaxAmps, amp)
	}
	return ZoneID{Amp: amp}, nil
}

// NewZone returns the id of a single output zone.
//
// Parameters:
//   - amp:  Amplifier number, 1-3
//   - zone: Zone number on that amp, 1-6
//
// Returns:
//   - ZoneID: Zone-level id
//   - error: ErrAmpOutOfRange or ErrZoneOutOfRange
func NewZone(amp, zone uint8) (ZoneID, error) {
	if amp < 1 || amp > MaxAmps {
		return ZoneID{}, fmt.Errorf("%w: amp must be 1-%d, got %d", ErrAmpOutOfRange, MaxAmps, amp)
	}
	if zone < 1 || zone > MaxZonesPerAmp {
		return ZoneID{}, fmt.Errorf("%w: zone must be 1-%d, got %d", ErrZoneOutOfRange, MaxZonesPerAmp, zone)
	}
	return ZoneID{Amp: amp, Zone: zone}, nil
}

// DecodeZoneID decodes the protocol's single-byte zone id.
//
// The encoding is Amp*10 + Zone: 0 is the System id, a trailing zero
// digit addresses a whole amplifier, anything else one zone.
//
// Parameters:
//   - value: Encoded id, e.g. 0, 20, 36
//
// Returns:
//   - ZoneID: Decoded id
//   - error: ErrAmpOutOfRange or ErrZoneOutOfRange for digits outside
//     the chain limits
func DecodeZoneID(value uint8) (ZoneID, error) {
	if value == 0 {
		return System, nil
	}

	amp := value / 10
	zone := value % 10

	if amp < 1 || amp > MaxAmps {
		return ZoneID{}, fmt.Errorf("%w: amp must be 1-%d, got zone id %02d", ErrAmpOutOfRange, MaxAmps, value)
	}
	if zone == 0 {
		return ZoneID{Amp: amp}, nil
	}
	if zone > MaxZonesPerAmp {
		return ZoneID{}, fmt.Errorf("%w: zone must be 1-%d, got zone id %02d", ErrZoneOutOfRange, MaxZonesPerAmp, value)
	}
	return ZoneID{Amp: amp, Zone: zone}, nil
}

// ParseZoneID parses the two-digit decimal form used in configuration
// keys and topic fragments ("00", "20", "36").
//
// Returns:
//   - ZoneID: Parsed id
//   - error: ErrInvalidZoneID if the string is not decimal, or a
//     decode error if the digits are outside the chain limits
func ParseZoneID(s string) (ZoneID, error) {
	value, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return ZoneID{}, fmt.Errorf("%w: %q is not a decimal zone id", ErrInvalidZoneID, s)
	}
	return DecodeZoneID(uint8(value))
}

// Encode returns the single-byte wire form (Amp*10 + Zone).
func (z ZoneID) Encode() uint8 {
	return z.Amp*10 + z.Zone
}

// String returns the canonical two-digit form.
//
// Example: "00" (system), "20" (amp 2), "36" (amp 3 zone 6)
func (z ZoneID) String() string {
	return fmt.Sprintf("%02d", z.Encode())
}

// IsSystem reports whether the id addresses the whole chain.
func (z ZoneID) IsSystem() bool { return z.Amp == 0 }

// IsAmp reports whether the id addresses one whole amplifier unit.
func (z ZoneID) IsAmp() bool { return z.Amp != 0 && z.Zone == 0 }

// IsZone reports whether the id addresses a single output zone.
func (z ZoneID) IsZone() bool { return z.Amp != 0 && z.Zone != 0 }

// Amps expands the id to the amplifier units it covers: every amp in
// the chain for System, the id's own amp otherwise.
func (z ZoneID) Amps() []ZoneID {
	if z.IsSystem() {
		amps := make([]ZoneID, 0, MaxAmps)
		for amp := uint8(1); amp <= MaxAmps; amp++ {
			amps = append(amps, ZoneID{Amp: amp})
		}
		return amps
	}
	return []ZoneID{{Amp: z.Amp}}
}

// Zones expands the id to the individual output zones it covers: the
// zone itself for Zone ids, all six zones for Amp ids, every zone of
// every amp for System.
func (z ZoneID) Zones() []ZoneID {
	if z.IsZone() {
		return []ZoneID{z}
	}

	amps := z.Amps()
	zones := make([]ZoneID, 0, len(amps)*MaxZonesPerAmp)
	for _, amp := range amps {
		for zone := uint8(1); zone <= MaxZonesPerAmp; zone++ {
			zones = append(zones, ZoneID{Amp: amp.Amp, Zone: zone})
		}
	}
	return zones
}

// OwningAmp returns the amplifier unit that carries this id: the
// zone's amp for Zone ids, the id unchanged for Amp and System.
func (z ZoneID) OwningAmp() ZoneID {
	if z.IsZone() {
		return ZoneID{Amp: z.Amp}
	}
	return z
}

// SourceID identifies one of the amplifier's input sources (1-6).
type SourceID uint8

// NewSourceID validates a source number.
//
// Returns:
//   - SourceID: Validated id
//   - error: ErrInvalidSourceID if outside 1-6
func NewSourceID(value uint8) (SourceID, error) {
	if value < 1 || value > MaxSources {
		return 0, fmt.Errorf("%w: source must be 1-%d, got %d", ErrInvalidSourceID, MaxSources, value)
	}
	return SourceID(value), nil
}

// ParseSourceID parses the two-digit decimal form used in
// configuration keys ("01".."06").
func ParseSourceID(s string) (SourceID, error) {
	value, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal source id", ErrInvalidSourceID, s)
	}
	return NewSourceID(uint8(value))
}

// String returns the canonical two-digit form ("01".."06").
func (s SourceID) String() string {
	return fmt.Sprintf("%02d", uint8(s))
}
