package items

import (
	"errors"
	"fmt"
	"testing"

	"github.com/yourusername/tray-cli/internal/types"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in     string
		want   Tag
		wantOK bool
	}{
		{"com.example.app:Item", Tag{"com.example.app", "Item"}, true},
		{"com.example.app:Item:With:Colons", Tag{"com.example.app", "Item:With:Colons"}, true},
		{"com.example.app:", Tag{"com.example.app", ""}, true},
		{"no-separator", Tag{}, false},
		{":title", Tag{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTag(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseTag(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}

	tag := Tag{Namespace: "com.example.app", Title: "Item"}
	if back, _ := ParseTag(tag.String()); back != tag {
		t.Errorf("ParseTag(String()) = %v, want %v", back, tag)
	}
}

func TestMovableAndHideable(t *testing.T) {
	clock := Tag{Namespace: "com.apple.controlcenter", Title: "Clock"}
	faceTime := Tag{Namespace: "com.apple.controlcenter", Title: "FaceTime"}
	regular := Tag{Namespace: "com.example.app", Title: "Item"}

	if IsMovable(clock) || CanBeHidden(clock) {
		t.Error("clock should be neither movable nor hideable")
	}
	if !IsMovable(faceTime) || CanBeHidden(faceTime) {
		t.Error("FaceTime should be movable but not hideable")
	}
	if !IsMovable(regular) || !CanBeHidden(regular) {
		t.Error("regular item should be movable and hideable")
	}
	if !CanBeHidden(HiddenControl) {
		t.Error("control items can be hidden")
	}
}

func TestControlItemTags(t *testing.T) {
	if !HiddenControl.IsSectionBoundary() || !AlwaysHiddenControl.IsSectionBoundary() {
		t.Error("hidden and always-hidden controls are section boundaries")
	}
	if VisibleControl.IsSectionBoundary() {
		t.Error("visible control is not a section boundary")
	}
	if !VisibleControl.IsControlItem() {
		t.Error("visible control is a control item")
	}
}

func TestDestinationSatisfiedBy(t *testing.T) {
	anchor := types.Rect{X: 100, Width: 20, Height: 24}

	tests := []struct {
		name string
		side types.Side
		item types.Rect
		want bool
	}{
		{"left of, touching", types.LeftOf, types.Rect{X: 80, Width: 20, Height: 24}, true},
		{"left of, gap", types.LeftOf, types.Rect{X: 70, Width: 20, Height: 24}, false},
		{"right of, touching", types.RightOf, types.Rect{X: 120, Width: 30, Height: 24}, true},
		{"right of, but left", types.RightOf, types.Rect{X: 80, Width: 20, Height: 24}, false},
	}
	for _, tt := range tests {
		d := Destination{Side: tt.side}
		if got := d.SatisfiedBy(tt.item, anchor); got != tt.want {
			t.Errorf("%s: SatisfiedBy = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	item := Item{WindowID: 42, Tag: Tag{Namespace: "com.example", Title: "X"}}

	err := Wrap("move", item, ErrItemNotMovable)
	if !errors.Is(err, ErrItemNotMovable) {
		t.Errorf("errors.Is(%v, ErrItemNotMovable) = false", err)
	}

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.WindowID != 42 {
		t.Fatalf("errors.As did not find OpError with window 42: %v", err)
	}

	if again := Wrap("move", item, err); again != err {
		t.Errorf("Wrap should not double wrap: %v", again)
	}

	outer := fmt.Errorf("attempt 3: %w", err)
	if !errors.Is(outer, ErrItemNotMovable) {
		t.Error("wrapped chain should still match sentinel")
	}

	if Wrap("move", item, nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}
