package labels

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/clamflow-labels/internal/models"
)

// DataContext is the run-time data a field resolves against.
// Lookups merge the sources with Custom taking priority over Station,
// and Station over Form. The "plant." prefix addresses the plant.
type DataContext struct {
	Plant   *models.PlantConfiguration
	Form    map[string]interface{}
	Station map[string]interface{}
	Custom  map[string]interface{}

	// Pinned per label by the generator. Zero values fall back to
	// lookups and the clock.
	BatchID  string
	Sequence int
	At       time.Time
}

// Lookup resolves a dot path across the merged context.
func (c DataContext) Lookup(path string) (interface{}, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	if path == "plant" {
		return nil, false
	}
	if rest, ok := strings.CutPrefix(path, "plant."); ok {
		v, found := c.Plant.Lookup(rest)
		return v, found
	}
	for _, src := range []map[string]interface{}{c.Custom, c.Station, c.Form} {
		if v, ok := lookupPath(src, path); ok {
			return v, true
		}
	}
	return nil, false
}

// LookupString is Lookup rendered as a display string. Nil and empty
// values report false.
func (c DataContext) LookupString(path string) (string, bool) {
	v, ok := c.Lookup(path)
	if !ok {
		return "", false
	}
	s := stringify(v)
	return s, s != ""
}

// FormString returns a top-level or nested form value as a string.
func (c DataContext) FormString(key string) (string, bool) {
	return mapString(c.Form, key)
}

// StationString returns a station value as a string.
func (c DataContext) StationString(key string) (string, bool) {
	return mapString(c.Station, key)
}

func mapString(m map[string]interface{}, key string) (string, bool) {
	v, ok := lookupPath(m, key)
	if !ok {
		return "", false
	}
	s := stringify(v)
	return s, s != ""
}

func lookupPath(m map[string]interface{}, path string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	// exact key first, so flat keys that contain dots still resolve
	if v, ok := m[path]; ok {
		return v, v != nil
	}

	var cur interface{} = m
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]string:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// stringify renders a decoded JSON value the way it should appear on a label.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	case []byte:
		return string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// toFloat converts a decoded JSON value to a number.
func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// toInt converts a decoded JSON value to an int, truncating fractions.
func toInt(v interface{}) (int, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// mergeMaps overlays maps left to right into a new map.
func mergeMaps(layers ...map[string]interface{}) map[string]interface{} {
	n := 0
	for _, l := range layers {
		n += len(l)
	}
	out := make(map[string]interface{}, n)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}
