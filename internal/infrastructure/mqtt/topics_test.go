package mqtt

import "testing"

func TestNewTopicsNormalizesBase(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"trailing slash kept", "mwha/", "mwha/"},
		{"missing slash added", "mwha", "mwha/"},
		{"nested base", "home/audio", "home/audio/"},
		{"empty base untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewTopics(tt.base).Base(); got != tt.want {
				t.Errorf("NewTopics(%q).Base() = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("mwha/")

	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "Connected",
			builder: func() string {
				return topics.Connected()
			},
			expected: "mwha/connected",
		},
		{
			name: "ZoneStatus",
			builder: func() string {
				return topics.ZoneStatus("12", "volume")
			},
			expected: "mwha/status/zone/12/volume",
		},
		{
			name: "ZoneStatus kebab attribute",
			builder: func() string {
				return topics.ZoneStatus("36", "do-not-disturb")
			},
			expected: "mwha/status/zone/36/do-not-disturb",
		},
		{
			name: "ZoneSet",
			builder: func() string {
				return topics.ZoneSet("12", "volume")
			},
			expected: "mwha/set/zone/12/volume",
		},
		{
			name: "ZoneName",
			builder: func() string {
				return topics.ZoneName("11")
			},
			expected: "mwha/status/zone/11/name",
		},
		{
			name: "ZoneType",
			builder: func() string {
				return topics.ZoneType("20")
			},
			expected: "mwha/status/zone/20/type",
		},
		{
			name: "Zones",
			builder: func() string {
				return topics.Zones()
			},
			expected: "mwha/status/zones",
		},
		{
			name: "SourceName",
			builder: func() string {
				return topics.SourceName("01")
			},
			expected: "mwha/status/source/01/name",
		},
		{
			name: "SourceEnabled",
			builder: func() string {
				return topics.SourceEnabled("06")
			},
			expected: "mwha/status/source/06/enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.builder(); got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestTopicsWithoutBase(t *testing.T) {
	topics := NewTopics("")
	if got := topics.ZoneStatus("11", "power"); got != "status/zone/11/power" {
		t.Errorf("ZoneStatus() = %q, want %q", got, "status/zone/11/power")
	}
}
