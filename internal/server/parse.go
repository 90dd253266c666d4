package server

import (
	"fmt"

	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/platform"
	"github.com/yourusername/tray-cli/internal/types"
)

// parseItems reads the "items" array of a menubar.items result. Entries
// without a window ID are skipped.
func parseItems(raw map[string]interface{}) ([]items.Item, error) {
	arr, ok := raw["items"].([]interface{})
	if !ok {
		if raw["items"] == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("items is %T, want array", raw["items"])
	}

	out := make([]items.Item, 0, len(arr))
	for _, v := range arr {
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		id := uint32(toFloat64(obj["windowId"]))
		if id == 0 {
			continue
		}
		it := items.Item{
			WindowID:   id,
			OwnerPID:   int(interfaceToInt(obj["ownerPid"])),
			SourcePID:  int(interfaceToInt(obj["sourcePid"])),
			Title:      toString(obj["title"]),
			OwnerName:  toString(obj["ownerName"]),
			IsOnScreen: toBool(obj["isOnScreen"]),
		}
		if rect, ok := parseFrame(obj["bounds"]); ok {
			it.Bounds = rect
		}
		out = append(out, it)
	}
	return out, nil
}

// parseWindows reads the "windows" array of a window.list result, keeping
// the server's front-to-back order.
func parseWindows(raw map[string]interface{}) []platform.WindowSnapshot {
	arr, ok := raw["windows"].([]interface{})
	if !ok {
		return nil
	}

	out := make([]platform.WindowSnapshot, 0, len(arr))
	for _, v := range arr {
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		w := platform.WindowSnapshot{
			WindowID: uint32(toFloat64(obj["windowId"])),
			OwnerPID: int(interfaceToInt(obj["ownerPid"])),
			Layer:    int(interfaceToInt(obj["layer"])),
			Title:    toString(obj["title"]),
			OnScreen: toBool(obj["onScreen"]),
		}
		if rect, ok := parseFrame(obj["bounds"]); ok {
			w.Bounds = rect
		}
		out = append(out, w)
	}
	return out
}

// parseEvent reads an event object as sent with eventTap.intercepted.
func parseEvent(v interface{}) (*platform.Event, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("event is %T, want object", v)
	}
	kind, ok := platform.ParseEventKind(toString(obj["kind"]))
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", toString(obj["kind"]))
	}
	ev := &platform.Event{
		Kind:      kind,
		Flags:     platform.Flags(interfaceToInt(obj["flags"])),
		WindowID:  uint32(interfaceToInt(obj["windowId"])),
		UserData:  interfaceToInt(obj["userData"]),
		TargetPID: int(interfaceToInt(obj["targetPid"])),
	}
	if p, ok := parsePoint(obj["point"]); ok {
		ev.Point = p
	}
	return ev, nil
}

// eventParams is the wire form of ev.
func eventParams(ev *platform.Event) map[string]interface{} {
	return map[string]interface{}{
		"kind":      ev.Kind.String(),
		"point":     pointParams(ev.Point),
		"flags":     uint64(ev.Flags),
		"windowId":  ev.WindowID,
		"userData":  ev.UserData,
		"targetPid": ev.TargetPID,
	}
}

func pointParams(p types.Point) map[string]interface{} {
	return map[string]interface{}{"x": p.X, "y": p.Y}
}

// parseFrame handles both object format {x,y,width,height} and array format [[x,y],[w,h]]
func parseFrame(frame interface{}) (types.Rect, bool) {
	if frame == nil {
		return types.Rect{}, false
	}

	// Try object format: {x, y, width, height}
	if obj, ok := frame.(map[string]interface{}); ok {
		return types.Rect{
			X:      toFloat64(obj["x"]),
			Y:      toFloat64(obj["y"]),
			Width:  toFloat64(obj["width"]),
			Height: toFloat64(obj["height"]),
		}, true
	}

	// Try array format: [[x, y], [width, height]]
	if arr, ok := frame.([]interface{}); ok && len(arr) == 2 {
		origin, okOrigin := arr[0].([]interface{})
		size, okSize := arr[1].([]interface{})

		if okOrigin && okSize && len(origin) >= 2 && len(size) >= 2 {
			return types.Rect{
				X:      toFloat64(origin[0]),
				Y:      toFloat64(origin[1]),
				Width:  toFloat64(size[0]),
				Height: toFloat64(size[1]),
			}, true
		}
	}

	return types.Rect{}, false
}

// parsePoint handles {x,y} and [x,y]
func parsePoint(v interface{}) (types.Point, bool) {
	if obj, ok := v.(map[string]interface{}); ok {
		return types.Point{X: toFloat64(obj["x"]), Y: toFloat64(obj["y"])}, true
	}
	if arr, ok := v.([]interface{}); ok && len(arr) >= 2 {
		return types.Point{X: toFloat64(arr[0]), Y: toFloat64(arr[1])}, true
	}
	return types.Point{}, false
}

// Type conversion helpers

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toBool(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func interfaceToInt(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	default:
		return 0
	}
}
