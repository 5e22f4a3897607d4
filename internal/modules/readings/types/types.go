package types

import (
	"math"
	"time"

	"envirogram/internal/derived"
)

// Reading is a stored derived record. Pointer fields are nil where the value was not
// finite when computed.
type Reading struct {
	ID                 string    `json:"id"`
	Location           string    `json:"location"`
	Temperature        *float64  `json:"temperature"`
	Humidity           *float64  `json:"humidity"`
	DewPoint           *float64  `json:"dewPoint"`
	AbsoluteHumidity   *float64  `json:"absoluteHumidity"`
	DewPointDepression *float64  `json:"dewPointDepression"`
	LocalTimestamp     string    `json:"timestamp"`
	ISOTimestamp       string    `json:"isoTimestamp"`
	Time               time.Time `json:"-"`
}

// FromRecord converts an output record for storage under id.
func FromRecord(id string, rec derived.OutputRecord) Reading {
	return Reading{
		ID:                 id,
		Location:           rec.Location,
		Temperature:        finite(rec.Temperature),
		Humidity:           finite(rec.Humidity),
		DewPoint:           finite(rec.DewPoint),
		AbsoluteHumidity:   finite(rec.AbsoluteHumidity),
		DewPointDepression: finite(rec.DewPointDepression),
		LocalTimestamp:     rec.LocalTimestamp,
		ISOTimestamp:       rec.ISOTimestamp,
		Time:               rec.Time.UTC(),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
