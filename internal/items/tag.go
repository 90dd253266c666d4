package items

import "strings"

const (
	// SelfNamespace is the namespace of the items this tool owns.
	SelfNamespace = "tray"

	// ControlItemPrefix starts the title of every control item.
	ControlItemPrefix = "TrayControlItem."
)

// Tag identifies an item across separate queries. Window IDs can be reused
// and owners recreate their items, so two items are the same logical item
// iff their tags are equal.
type Tag struct {
	Namespace string `json:"namespace"`
	Title     string `json:"title"`
}

// String returns "namespace:title".
func (t Tag) String() string {
	return t.Namespace + ":" + t.Title
}

// IsZero reports whether the tag is unset.
func (t Tag) IsZero() bool {
	return t == Tag{}
}

// ParseTag parses the "namespace:title" form. The title may contain colons.
func ParseTag(s string) (Tag, bool) {
	ns, title, ok := strings.Cut(s, ":")
	if !ok || ns == "" {
		return Tag{}, false
	}
	return Tag{Namespace: ns, Title: title}, true
}

// Control item tags.
var (
	VisibleControl      = Tag{Namespace: SelfNamespace, Title: ControlItemPrefix + "Visible"}
	HiddenControl       = Tag{Namespace: SelfNamespace, Title: ControlItemPrefix + "Hidden"}
	AlwaysHiddenControl = Tag{Namespace: SelfNamespace, Title: ControlItemPrefix + "AlwaysHidden"}
)

// IsControlItem reports whether the tag belongs to one of our control items.
func (t Tag) IsControlItem() bool {
	return t == VisibleControl || t == HiddenControl || t == AlwaysHiddenControl
}

// IsSectionBoundary reports whether the tag marks a section boundary.
func (t Tag) IsSectionBoundary() bool {
	return t == HiddenControl || t == AlwaysHiddenControl
}

// Items the OS pins in place.
var immovable = map[Tag]bool{
	{Namespace: "com.apple.controlcenter", Title: "Clock"}:    true,
	{Namespace: "com.apple.controlcenter", Title: "BentoBox"}: true,
	{Namespace: "com.apple.Siri", Title: "Siri"}:              true,
}

// Items that can be moved but that the OS shows regardless of position.
var nonHideable = map[Tag]bool{
	{Namespace: "com.apple.controlcenter", Title: "AudioVideoModule"}: true,
	{Namespace: "com.apple.controlcenter", Title: "FaceTime"}:         true,
	{Namespace: "com.apple.controlcenter", Title: "MusicRecognition"}: true,
}

// IsMovable reports whether items with this tag can be dragged.
func IsMovable(t Tag) bool {
	return !immovable[t]
}

// CanBeHidden reports whether items with this tag may live in a hidden section.
func CanBeHidden(t Tag) bool {
	return IsMovable(t) && !nonHideable[t]
}
