package derived

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// InputRecord is one temperature / humidity pair as it arrives from a source.
// Values are kept dynamic so that non-numeric payloads can be detected and dropped.
type InputRecord struct {
	Temperature any `json:"temperature"`
	Humidity    any `json:"humidity"`
}

// UnmarshalJSON keeps numbers as json.Number so a quoted "20" stays a string.
func (in *InputRecord) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("input record: expected JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("input record: %w", err)
	}

	in.Temperature = raw["temperature"]
	in.Humidity = raw["humidity"]
	return nil
}

// OutputRecord is what the dashboard receives.
type OutputRecord struct {
	Temperature        float64
	Humidity           float64
	DewPoint           float64
	AbsoluteHumidity   float64
	DewPointDepression float64
	LocalTimestamp     string
	ISOTimestamp       string
	Location           string

	// Time is the instant both timestamps were formatted from.
	Time time.Time
}

type outputJSON struct {
	Temperature        *float64 `json:"temperature"`
	Humidity           *float64 `json:"humidity"`
	DewPoint           *float64 `json:"dewPoint"`
	AbsoluteHumidity   *float64 `json:"absoluteHumidity"`
	DewPointDepression *float64 `json:"dewPointDepression"`
	Timestamp          string   `json:"timestamp"`
	ISOTimestamp       string   `json:"isoTimestamp"`
	Location           string   `json:"location"`
}

// MarshalJSON writes non-finite values as null, the way the dashboard always saw them.
func (r OutputRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{
		Temperature:        finiteOrNil(r.Temperature),
		Humidity:           finiteOrNil(r.Humidity),
		DewPoint:           finiteOrNil(r.DewPoint),
		AbsoluteHumidity:   finiteOrNil(r.AbsoluteHumidity),
		DewPointDepression: finiteOrNil(r.DewPointDepression),
		Timestamp:          r.LocalTimestamp,
		ISOTimestamp:       r.ISOTimestamp,
		Location:           r.Location,
	})
}

// UnmarshalJSON reverses MarshalJSON; null numbers come back as NaN.
func (r *OutputRecord) UnmarshalJSON(data []byte) error {
	var aux outputJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = OutputRecord{
		Temperature:        nilAsNaN(aux.Temperature),
		Humidity:           nilAsNaN(aux.Humidity),
		DewPoint:           nilAsNaN(aux.DewPoint),
		AbsoluteHumidity:   nilAsNaN(aux.AbsoluteHumidity),
		DewPointDepression: nilAsNaN(aux.DewPointDepression),
		LocalTimestamp:     aux.Timestamp,
		ISOTimestamp:       aux.ISOTimestamp,
		Location:           aux.Location,
	}
	if aux.ISOTimestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, aux.ISOTimestamp)
		if err != nil {
			return fmt.Errorf("isoTimestamp %q: %w", aux.ISOTimestamp, err)
		}
		r.Time = t
	}
	return nil
}

// Fields returns the numeric fields keyed by their JSON names.
func (r OutputRecord) Fields() map[string]float64 {
	return map[string]float64{
		"temperature":        r.Temperature,
		"humidity":           r.Humidity,
		"dewPoint":           r.DewPoint,
		"absoluteHumidity":   r.AbsoluteHumidity,
		"dewPointDepression": r.DewPointDepression,
	}
}

// ParsePlainValue decodes a plain-text sensor payload such as "21.3".
// Valid JSON numbers become json.Number; anything else is returned as the trimmed string.
func ParsePlainValue(payload []byte) any {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, `"`) {
		return s
	}
	var n json.Number
	if err := json.Unmarshal([]byte(s), &n); err == nil && n != "" {
		if _, err := n.Float64(); err == nil || errors.Is(err, strconv.ErrRange) {
			return n
		}
	}
	return s
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilAsNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
