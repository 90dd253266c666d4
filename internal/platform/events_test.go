package platform

import "testing"

func TestEventKindRoundTrip(t *testing.T) {
	for k := KindNull; k <= KindLeftMouseDragged; k++ {
		got, ok := ParseEventKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseEventKind(%q) = %v, %v; want %v", k.String(), got, ok, k)
		}
	}
	if _, ok := ParseEventKind("rightMouseDown"); ok {
		t.Error("ParseEventKind accepted an unknown kind")
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
		ok   bool
	}{
		{"hid", LocationHID, true},
		{"session", LocationSession, true},
		{"pid", LocationPID, true},
		{"annotated", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLocation(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLocation(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEventMatches(t *testing.T) {
	ev := &Event{Kind: KindLeftMouseDown, WindowID: 12, UserData: 99}

	transformed := ev.Clone()
	transformed.Kind = KindLeftMouseDragged
	if !ev.Matches(transformed) {
		t.Error("events with the same window and user data should match regardless of kind")
	}

	other := ev.Clone()
	other.UserData = 100
	if ev.Matches(other) {
		t.Error("events with different user data should not match")
	}
	if ev.Matches(nil) {
		t.Error("Matches(nil) = true")
	}
}
