package mwha

import (
	"errors"
	"testing"
)

func TestDecodeZoneID(t *testing.T) {
	tests := []struct {
		name    string
		value   uint8
		want    ZoneID
		wantErr error
	}{
		{name: "system", value: 0, want: System},
		{name: "amp 1", value: 10, want: ZoneID{Amp: 1}},
		{name: "amp 3", value: 30, want: ZoneID{Amp: 3}},
		{name: "first zone", value: 11, want: ZoneID{Amp: 1, Zone: 1}},
		{name: "last zone", value: 36, want: ZoneID{Amp: 3, Zone: 6}},
		{name: "amp above chain limit", value: 47, wantErr: ErrAmpOutOfRange},
		{name: "amp digit zero with zone", value: 9, wantErr: ErrAmpOutOfRange},
		{name: "zone above amp limit", value: 17, wantErr: ErrZoneOutOfRange},
		{name: "zone 9", value: 29, wantErr: ErrZoneOutOfRange},
		{name: "amp 9", value: 90, wantErr: ErrAmpOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeZoneID(tt.value)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeZoneID(%d) error = %v, want %v", tt.value, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeZoneID(%d) unexpected error: %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("DecodeZoneID(%d) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestZoneIDEncodeRoundTrip(t *testing.T) {
	ids := []ZoneID{System}
	for amp := uint8(1); amp <= MaxAmps; amp++ {
		ids = append(ids, ZoneID{Amp: amp})
		for zone := uint8(1); zone <= MaxZonesPerAmp; zone++ {
			ids = append(ids, ZoneID{Amp: amp, Zone: zone})
		}
	}

	for _, id := range ids {
		got, err := DecodeZoneID(id.Encode())
		if err != nil {
			t.Errorf("DecodeZoneID(%d) unexpected error: %v", id.Encode(), err)
			continue
		}
		if got != id {
			t.Errorf("round trip %v -> %d -> %v", id, id.Encode(), got)
		}
	}
}

func TestParseZoneID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ZoneID
		wantErr error
	}{
		{name: "system", input: "00", want: System},
		{name: "unpadded zero", input: "0", want: System},
		{name: "amp", input: "20", want: ZoneID{Amp: 2}},
		{name: "zone", input: "36", want: ZoneID{Amp: 3, Zone: 6}},
		{name: "not a number", input: "kitchen", wantErr: ErrInvalidZoneID},
		{name: "negative", input: "-1", wantErr: ErrInvalidZoneID},
		{name: "too large for byte", input: "300", wantErr: ErrInvalidZoneID},
		{name: "empty", input: "", wantErr: ErrInvalidZoneID},
		{name: "out of range digits", input: "47", wantErr: ErrAmpOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseZoneID(tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseZoneID(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseZoneID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseZoneID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestZoneIDString(t *testing.T) {
	tests := []struct {
		id   ZoneID
		want string
	}{
		{System, "00"},
		{ZoneID{Amp: 1}, "10"},
		{ZoneID{Amp: 1, Zone: 1}, "11"},
		{ZoneID{Amp: 3, Zone: 6}, "36"},
	}

	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("String(%+v) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestZoneIDPredicates(t *testing.T) {
	tests := []struct {
		id                     ZoneID
		isSystem, isAmp, isZone bool
	}{
		{System, true, false, false},
		{ZoneID{Amp: 2}, false, true, false},
		{ZoneID{Amp: 2, Zone: 4}, false, false, true},
	}

	for _, tt := range tests {
		if got := tt.id.IsSystem(); got != tt.isSystem {
			t.Errorf("%v IsSystem() = %t, want %t", tt.id, got, tt.isSystem)
		}
		if got := tt.id.IsAmp(); got != tt.isAmp {
			t.Errorf("%v IsAmp() = %t, want %t", tt.id, got, tt.isAmp)
		}
		if got := tt.id.IsZone(); got != tt.isZone {
			t.Errorf("%v IsZone() = %t, want %t", tt.id, got, tt.isZone)
		}
	}
}

func TestZoneIDAmps(t *testing.T) {
	system := System.Amps()
	if len(system) != MaxAmps {
		t.Fatalf("System.Amps() returned %d amps, want %d", len(system), MaxAmps)
	}
	for i, amp := range system {
		want := ZoneID{Amp: uint8(i + 1)}
		if amp != want {
			t.Errorf("System.Amps()[%d] = %v, want %v", i, amp, want)
		}
	}

	zone := ZoneID{Amp: 2, Zone: 3}
	if got := zone.Amps(); len(got) != 1 || got[0] != (ZoneID{Amp: 2}) {
		t.Errorf("%v.Amps() = %v, want [20]", zone, got)
	}

	amp := ZoneID{Amp: 3}
	if got := amp.Amps(); len(got) != 1 || got[0] != amp {
		t.Errorf("%v.Amps() = %v, want [%v]", amp, got, amp)
	}
}

func TestZoneIDZones(t *testing.T) {
	zone := ZoneID{Amp: 1, Zone: 4}
	if got := zone.Zones(); len(got) != 1 || got[0] != zone {
		t.Errorf("%v.Zones() = %v, want [%v]", zone, got, zone)
	}

	amp := ZoneID{Amp: 2}
	got := amp.Zones()
	if len(got) != MaxZonesPerAmp {
		t.Fatalf("%v.Zones() returned %d zones, want %d", amp, len(got), MaxZonesPerAmp)
	}
	for i, z := range got {
		want := ZoneID{Amp: 2, Zone: uint8(i + 1)}
		if z != want {
			t.Errorf("%v.Zones()[%d] = %v, want %v", amp, i, z, want)
		}
	}

	if got := System.Zones(); len(got) != MaxAmps*MaxZonesPerAmp {
		t.Errorf("System.Zones() returned %d zones, want %d", len(got), MaxAmps*MaxZonesPerAmp)
	}
}

func TestZoneIDOwningAmp(t *testing.T) {
	tests := []struct {
		id   ZoneID
		want ZoneID
	}{
		{ZoneID{Amp: 1, Zone: 5}, ZoneID{Amp: 1}},
		{ZoneID{Amp: 2}, ZoneID{Amp: 2}},
		{System, System},
	}

	for _, tt := range tests {
		if got := tt.id.OwningAmp(); got != tt.want {
			t.Errorf("%v.OwningAmp() = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestNewAmp(t *testing.T) {
	if _, err := NewAmp(0); !errors.Is(err, ErrAmpOutOfRange) {
		t.Errorf("NewAmp(0) error = %v, want ErrAmpOutOfRange", err)
	}
	if _, err := NewAmp(4); !errors.Is(err, ErrAmpOutOfRange) {
		t.Errorf("NewAmp(4) error = %v, want ErrAmpOutOfRange", err)
	}
	got, err := NewAmp(2)
	if err != nil {
		t.Fatalf("NewAmp(2) unexpected error: %v", err)
	}
	if got != (ZoneID{Amp: 2}) {
		t.Errorf("NewAmp(2) = %v, want 20", got)
	}
}

func TestNewZone(t *testing.T) {
	if _, err := NewZone(0, 1); !errors.Is(err, ErrAmpOutOfRange) {
		t.Errorf("NewZone(0,1) error = %v, want ErrAmpOutOfRange", err)
	}
	if _, err := NewZone(1, 0); !errors.Is(err, ErrZoneOutOfRange) {
		t.Errorf("NewZone(1,0) error = %v, want ErrZoneOutOfRange", err)
	}
	if _, err := NewZone(1, 7); !errors.Is(err, ErrZoneOutOfRange) {
		t.Errorf("NewZone(1,7) error = %v, want ErrZoneOutOfRange", err)
	}
	got, err := NewZone(3, 6)
	if err != nil {
		t.Fatalf("NewZone(3,6) unexpected error: %v", err)
	}
	if got != (ZoneID{Amp: 3, Zone: 6}) {
		t.Errorf("NewZone(3,6) = %v, want 36", got)
	}
}

func TestParseSourceID(t *testing.T) {
	tests := []struct {
		input   string
		want    SourceID
		wantErr bool
	}{
		{input: "01", want: 1},
		{input: "6", want: 6},
		{input: "00", wantErr: true},
		{input: "07", wantErr: true},
		{input: "turntable", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSourceID(tt.input)

		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSourceID) {
				t.Errorf("ParseSourceID(%q) error = %v, want ErrInvalidSourceID", tt.input, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("ParseSourceID(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSourceID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSourceIDString(t *testing.T) {
	if got := SourceID(3).String(); got != "03" {
		t.Errorf("SourceID(3).String() = %q, want %q", got, "03")
	}
}
