package effects

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"libdb.so/emberglow/internal/led"
)

// Params is the raw, user-supplied set of effect parameters, usually decoded
// from a JSON request body.
type Params map[string]any

// ParamSpec describes one numeric effect parameter.
type ParamSpec struct {
	Name    string  `json:"-"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Desc    string  `json:"desc"`
}

// Clamp clamps v into [Min, Max].
func (p ParamSpec) Clamp(v float64) float64 {
	return math.Max(p.Min, math.Min(p.Max, v))
}

// Schema is the ordered list of parameters an effect accepts.
type Schema []ParamSpec

// MarshalJSON encodes the schema as an object keyed by parameter name.
func (s Schema) MarshalJSON() ([]byte, error) {
	m := make(map[string]ParamSpec, len(s))
	for _, p := range s {
		m[p.Name] = p
	}
	return json.Marshal(m)
}

// Lookup returns the spec for the named parameter.
func (s Schema) Lookup(name string) (ParamSpec, bool) {
	for _, p := range s {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Resolve resolves raw parameters against the schema. Every parameter in the
// schema gets a value: the supplied one if it is numeric, otherwise the
// default. Values are always clamped into their range; out-of-range input is
// never rejected.
//
// The names of supplied parameters that were unknown or not numeric are
// returned in sorted order so that callers can log them.
func (s Schema) Resolve(raw Params) (Values, []string) {
	values := make(Values, len(s))
	for _, p := range s {
		values[p.Name] = p.Default
	}

	var ignored []string
	for name, v := range raw {
		if _, ok := s.Lookup(name); !ok {
			ignored = append(ignored, name)
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			ignored = append(ignored, name)
			continue
		}
		values[name] = f
	}

	for _, p := range s {
		values[p.Name] = p.Clamp(values[p.Name])
	}

	sort.Strings(ignored)
	return values, ignored
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Values are resolved, clamped parameter values.
type Values map[string]float64

// Float returns the named value.
func (v Values) Float(name string) float64 {
	return v[name]
}

// Int returns the named value truncated toward zero.
func (v Values) Int(name string) int {
	return int(v[name])
}

// Byte returns the named value truncated into a byte.
func (v Values) Byte(name string) uint8 {
	return uint8(math.Max(0, math.Min(255, v[name])))
}

// Seconds returns the named value as a duration in seconds.
func (v Values) Seconds(name string) time.Duration {
	return time.Duration(v[name] * float64(time.Second))
}

// Color returns the color made of the r, g and b values.
func (v Values) Color() led.RGBColor {
	return led.RGB(v.Byte("r"), v.Byte("g"), v.Byte("b"))
}

func colorParams(r, g, b float64) Schema {
	return Schema{
		{Name: "r", Default: r, Min: 0, Max: 255, Desc: "Red component"},
		{Name: "g", Default: g, Min: 0, Max: 255, Desc: "Green component"},
		{Name: "b", Default: b, Min: 0, Max: 255, Desc: "Blue component"},
	}
}
