package gateway

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Candidate key lists. Firmware versions disagree on field naming, so every
// lookup walks its list in order and the first usable value wins. Null and
// blank values fall through to the next key.
var (
	RoomIDKeys       = []string{"roomId", "id", "Id"}
	DeviceRoomIDKeys = []string{"roomId", "room_id", "room", "RId"}
	AreaNameKeys     = []string{"roomName", "name", "Name"}
	DeviceIDKeys     = []string{"Id", "id"}
	DeviceNameKeys   = []string{"Name", "name"}

	PositionKeys       = []string{"position"}
	BatteryKeys        = []string{"battery"}
	SignalStrengthKeys = []string{"Rssi", "rssi"}
	TemperatureKeys    = []string{"temp"}
	SolarKeys          = []string{"solar"}
	USBPowerKeys       = []string{"usb"}
	FirmwareKeys       = []string{"ver"}
)

// Record is one raw JSON object as returned by the gateway.
type Record map[string]any

// Lookup returns the value of the first key in keys that is present and non-null.
func (r Record) Lookup(keys []string) (any, bool) {
	return firstOf(r, keys, func(v any) (any, bool) { return v, true })
}

// ID looks up an identifier. Empty strings count as missing.
func (r Record) ID(keys []string) (ID, bool) {
	return firstOf(r, keys, func(v any) (ID, bool) {
		id := idFromValue(v)
		return id, id != ""
	})
}

// String looks up a value and renders it as text. Blank strings count as missing.
func (r Record) String(keys []string) (string, bool) {
	return firstOf(r, keys, textFromValue)
}

// Number looks up a numeric value. Booleans map to 0/1 and numeric strings are parsed.
func (r Record) Number(keys []string) (float64, bool) {
	return firstOf(r, keys, numberFromValue)
}

// firstOf returns the converted value of the first key whose value conv accepts.
func firstOf[T any](r Record, keys []string, conv func(any) (T, bool)) (T, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if out, ok := conv(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

func textFromValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, strings.TrimSpace(val) != ""
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	}
	return "", false
}

// ID is a gateway identifier. The gateway sends ids as integers or strings
// depending on firmware; they are compared in canonical string form.
type ID string

// WireValue returns the id as the gateway expects it in a request body:
// an integer when the id is numeric, otherwise the string.
func (id ID) WireValue() any {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return n
	}
	return string(id)
}

func (id ID) String() string { return string(id) }

func idFromValue(v any) ID {
	switch val := v.(type) {
	case string:
		return ID(strings.TrimSpace(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return ID(strconv.FormatInt(n, 10))
		}
		if f, err := val.Float64(); err == nil {
			return idFromFloat(f)
		}
		return ID(val.String())
	case float64:
		return idFromFloat(val)
	case int:
		return ID(strconv.Itoa(val))
	case int64:
		return ID(strconv.FormatInt(val, 10))
	}
	return ""
}

func idFromFloat(f float64) ID {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64))
}

func numberFromValue(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
