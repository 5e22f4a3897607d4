// Package derived turns a temperature / relative humidity pair into the values shown on
// the dashboard: dew point, absolute humidity and dew point depression, stamped with a
// local and an ISO-8601 timestamp.
//
// The computation is pure and synchronous. Invalid input is reported through a warning
// collaborator and yields no record; numeric degeneracies (humidity 0, alpha == a)
// are not guarded and surface as non-finite values.
package derived

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"time"
)

// DefaultLocation is the label used when none is configured.
const DefaultLocation = "Berlin, Germany"

const (
	// Magnus-Tetens dew point.
	dewA = 17.27
	dewB = 237.7

	// Saturation vapour pressure for absolute humidity.
	vapA = 17.67
	vapB = 243.5

	// en-US numeric date, 24-hour clock.
	LocalTimestampLayout = "01/02/2006, 15:04:05"
	// ISO-8601 UTC with millisecond precision.
	ISOTimestampLayout = "2006-01-02T15:04:05.000Z"
)

// ErrInvalidInputType is reported when temperature or humidity is not numeric.
var ErrInvalidInputType = errors.New("invalid input type")

// Warner receives the warning emitted for dropped input. *slog.Logger satisfies it.
type Warner interface {
	Warn(msg string, args ...any)
}

// Calculator computes OutputRecords. A Calculator is immutable and safe for concurrent use.
type Calculator struct {
	location string
	zone     *time.Location
	now      func() time.Time
	warn     Warner
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTimeZone sets the zone used for the local timestamp.
func WithTimeZone(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.zone = loc
		}
	}
}

// NewCalculator returns a Calculator labelling records with location and warning through w.
// An empty location falls back to DefaultLocation, a nil w to slog.Default().
func NewCalculator(location string, w Warner, opts ...Option) *Calculator {
	if location == "" {
		location = DefaultLocation
	}
	if w == nil {
		w = slog.Default()
	}
	c := &Calculator{
		location: location,
		zone:     time.Local,
		now:      time.Now,
		warn:     w,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the configured location label.
func (c *Calculator) Location() string {
	return c.location
}

// Compute derives the output record for in. When either reading is not numeric it
// emits one warning and returns false; the caller forwards nothing.
func (c *Calculator) Compute(in InputRecord) (OutputRecord, bool) {
	t, h, err := validate(in)
	if err != nil {
		c.warn.Warn("Invalid data", "error", err)
		return OutputRecord{}, false
	}

	dewPoint := DewPoint(t, h)
	now := c.now()

	return OutputRecord{
		Temperature:        round2(t),
		Humidity:           round2(h),
		DewPoint:           round2(dewPoint),
		AbsoluteHumidity:   round2(AbsoluteHumidity(t, h)),
		DewPointDepression: round2(t - dewPoint),
		LocalTimestamp:     now.In(c.zone).Format(LocalTimestampLayout),
		ISOTimestamp:       now.UTC().Format(ISOTimestampLayout),
		Location:           c.location,
		Time:               now,
	}, true
}

// DewPoint returns the Magnus dew point in °C for temperature t (°C) and relative humidity h (%).
func DewPoint(t, h float64) float64 {
	alpha := (dewA*t)/(dewB+t) + math.Log(h/100.0)
	return (dewB * alpha) / (dewA - alpha)
}

// AbsoluteHumidity returns the absolute humidity for temperature t (°C) and relative humidity h (%).
func AbsoluteHumidity(t, h float64) float64 {
	e := math.Exp((vapA * t) / (t + vapB))
	return (6.112 * e * h) / (461.5 * (t + 273.15))
}

func validate(in InputRecord) (float64, float64, error) {
	t, ok := numeric(in.Temperature)
	if !ok {
		return 0, 0, fmt.Errorf("temperature %s: %w", describe(in.Temperature), ErrInvalidInputType)
	}
	h, ok := numeric(in.Humidity)
	if !ok {
		return 0, 0, fmt.Errorf("humidity %s: %w", describe(in.Humidity), ErrInvalidInputType)
	}
	return t, h, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		// Out-of-range literals such as 1e400 are still numbers; they become ±Inf.
		f, err := n.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func describe(v any) string {
	if v == nil {
		return "missing"
	}
	return fmt.Sprintf("of type %T", v)
}

// round2 rounds the exact binary value of v to two decimals, ties away from zero.
// Scaling by 100 in float64 first would round 99.985 (stored as 99.98499...) up.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= 1e21 {
		return v
	}

	x := new(big.Float).SetPrec(256).SetFloat64(math.Abs(v))
	x.Mul(x, big.NewFloat(100))
	x.Add(x, big.NewFloat(0.5))
	n, _ := x.Int(nil)

	digits := n.String()
	for len(digits) < 3 {
		digits = "0" + digits
	}
	r, err := strconv.ParseFloat(digits[:len(digits)-2]+"."+digits[len(digits)-2:], 64)
	if err != nil {
		return v
	}
	// No negative zero: it would encode as -0.
	if v < 0 && r != 0 {
		r = -r
	}
	return r
}
