package derived

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

// recordingWarner counts warnings for assertion in tests.
type recordingWarner struct {
	msgs []string
	args [][]any
}

func (w *recordingWarner) Warn(msg string, args ...any) {
	w.msgs = append(w.msgs, msg)
	w.args = append(w.args, args)
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestCalculator(w Warner) *Calculator {
	return NewCalculator("Berlin, Germany", w,
		WithClock(func() time.Time { return fixedNow }),
		WithTimeZone(time.UTC),
	)
}

func closedFormDewPoint(t, h float64) float64 {
	alpha := (17.27*t)/(237.7+t) + math.Log(h/100)
	return (237.7 * alpha) / (17.27 - alpha)
}

func closedFormAbsoluteHumidity(t, h float64) float64 {
	e := math.Exp((17.67 * t) / (t + 243.5))
	return (6.112 * e * h) / (461.5 * (t + 273.15))
}

func TestCompute_MildDay(t *testing.T) {
	w := &recordingWarner{}
	c := newTestCalculator(w)

	out, ok := c.Compute(InputRecord{Temperature: 20.0, Humidity: 65.0})
	if !ok {
		t.Fatal("Compute() ok = false; want true")
	}
	if len(w.msgs) != 0 {
		t.Fatalf("warnings = %v; want none", w.msgs)
	}

	if out.Temperature != 20 || out.Humidity != 65 {
		t.Errorf("echo = (%v, %v); want (20, 65)", out.Temperature, out.Humidity)
	}
	if out.DewPoint != 13.21 {
		t.Errorf("DewPoint = %v; want 13.21", out.DewPoint)
	}
	if out.DewPointDepression != 6.79 {
		t.Errorf("DewPointDepression = %v; want 6.79", out.DewPointDepression)
	}
	if out.AbsoluteHumidity != 0.01 {
		t.Errorf("AbsoluteHumidity = %v; want 0.01", out.AbsoluteHumidity)
	}
	if out.Location != "Berlin, Germany" {
		t.Errorf("Location = %q; want Berlin, Germany", out.Location)
	}
	if out.LocalTimestamp != "03/14/2026, 09:26:53" {
		t.Errorf("LocalTimestamp = %q; want 03/14/2026, 09:26:53", out.LocalTimestamp)
	}
	if out.ISOTimestamp != "2026-03-14T09:26:53.589Z" {
		t.Errorf("ISOTimestamp = %q; want 2026-03-14T09:26:53.589Z", out.ISOTimestamp)
	}
	if !out.Time.Equal(fixedNow) {
		t.Errorf("Time = %v; want %v", out.Time, fixedNow)
	}
}

func TestCompute_MatchesClosedForm(t *testing.T) {
	c := newTestCalculator(&recordingWarner{})

	tests := []struct {
		name string
		t, h float64
	}{
		{name: "mild", t: 20, h: 65},
		{name: "freezing", t: -5, h: 80},
		{name: "hot and dry", t: 30, h: 40},
		{name: "fractional", t: 21.5, h: 55.3},
		{name: "saturated", t: 0, h: 100},
		{name: "above physical range", t: 60, h: 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := c.Compute(InputRecord{Temperature: tt.t, Humidity: tt.h})
			if !ok {
				t.Fatal("Compute() ok = false; want true")
			}
			dp := closedFormDewPoint(tt.t, tt.h)
			if want := math.Round(dp*100) / 100; out.DewPoint != want {
				t.Errorf("DewPoint = %v; want %v", out.DewPoint, want)
			}
			if want := math.Round(closedFormAbsoluteHumidity(tt.t, tt.h)*100) / 100; out.AbsoluteHumidity != want {
				t.Errorf("AbsoluteHumidity = %v; want %v", out.AbsoluteHumidity, want)
			}
			if want := math.Round((tt.t-dp)*100) / 100; out.DewPointDepression != want {
				t.Errorf("DewPointDepression = %v; want %v", out.DewPointDepression, want)
			}
		})
	}
}

func TestCompute_RoundsEcho(t *testing.T) {
	c := newTestCalculator(&recordingWarner{})

	out, ok := c.Compute(InputRecord{Temperature: 21.4567, Humidity: 55.301})
	if !ok {
		t.Fatal("Compute() ok = false; want true")
	}
	if out.Temperature != 21.46 {
		t.Errorf("Temperature = %v; want 21.46", out.Temperature)
	}
	if out.Humidity != 55.3 {
		t.Errorf("Humidity = %v; want 55.3", out.Humidity)
	}
}

func TestCompute_NumericKinds(t *testing.T) {
	c := newTestCalculator(&recordingWarner{})

	inputs := []InputRecord{
		{Temperature: 20, Humidity: 65},
		{Temperature: int64(20), Humidity: uint8(65)},
		{Temperature: float32(20), Humidity: int32(65)},
		{Temperature: json.Number("20"), Humidity: json.Number("65.0")},
	}
	for _, in := range inputs {
		out, ok := c.Compute(in)
		if !ok {
			t.Fatalf("Compute(%#v) ok = false; want true", in)
		}
		if out.DewPoint != 13.21 {
			t.Errorf("Compute(%#v).DewPoint = %v; want 13.21", in, out.DewPoint)
		}
	}
}

func TestCompute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		in    InputRecord
		field string
	}{
		{name: "string temperature", in: InputRecord{Temperature: "20", Humidity: 65.0}, field: "temperature"},
		{name: "string humidity", in: InputRecord{Temperature: 20.0, Humidity: "65"}, field: "humidity"},
		{name: "missing temperature", in: InputRecord{Humidity: 65.0}, field: "temperature"},
		{name: "missing both", in: InputRecord{}, field: "temperature"},
		{name: "boolean humidity", in: InputRecord{Temperature: 20.0, Humidity: true}, field: "humidity"},
		{name: "malformed number", in: InputRecord{Temperature: json.Number("2x"), Humidity: 65.0}, field: "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWarner{}
			c := newTestCalculator(w)

			out, ok := c.Compute(tt.in)
			if ok {
				t.Fatalf("Compute() ok = true (%+v); want false", out)
			}
			if out != (OutputRecord{}) {
				t.Errorf("Compute() record = %+v; want zero value", out)
			}
			if len(w.msgs) != 1 {
				t.Fatalf("warnings = %d; want exactly 1", len(w.msgs))
			}
			if w.msgs[0] != "Invalid data" {
				t.Errorf("warning msg = %q; want Invalid data", w.msgs[0])
			}
			err, _ := w.args[0][1].(error)
			if !errors.Is(err, ErrInvalidInputType) {
				t.Errorf("warning error = %v; want ErrInvalidInputType", err)
			}
			if !strings.HasPrefix(err.Error(), tt.field) {
				t.Errorf("warning error = %q; want prefix %q", err.Error(), tt.field)
			}
		})
	}
}

func TestCompute_ZeroHumidityIsNotGuarded(t *testing.T) {
	w := &recordingWarner{}
	c := newTestCalculator(w)

	out, ok := c.Compute(InputRecord{Temperature: 20.0, Humidity: 0.0})
	if !ok {
		t.Fatal("Compute() ok = false; want true")
	}
	if len(w.msgs) != 0 {
		t.Errorf("warnings = %v; want none", w.msgs)
	}
	if !math.IsNaN(out.DewPoint) && !math.IsInf(out.DewPoint, 0) {
		t.Errorf("DewPoint = %v; want non-finite", out.DewPoint)
	}
	if out.AbsoluteHumidity != 0 {
		t.Errorf("AbsoluteHumidity = %v; want 0", out.AbsoluteHumidity)
	}
}

func TestCompute_TimestampsShareInstant(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	calls := 0
	c := NewCalculator("", &recordingWarner{},
		WithClock(func() time.Time {
			calls++
			return fixedNow.Add(time.Duration(calls) * time.Hour)
		}),
		WithTimeZone(berlin),
	)

	out, ok := c.Compute(InputRecord{Temperature: 20.0, Humidity: 65.0})
	if !ok {
		t.Fatal("Compute() ok = false; want true")
	}
	if calls != 1 {
		t.Fatalf("clock called %d times; want 1", calls)
	}

	iso, err := time.Parse(time.RFC3339Nano, out.ISOTimestamp)
	if err != nil {
		t.Fatalf("isoTimestamp %q does not parse: %v", out.ISOTimestamp, err)
	}
	local, err := time.ParseInLocation(LocalTimestampLayout, out.LocalTimestamp, berlin)
	if err != nil {
		t.Fatalf("localTimestamp %q does not parse: %v", out.LocalTimestamp, err)
	}
	if !local.Equal(iso.Truncate(time.Second)) {
		t.Errorf("local %v and iso %v denote different instants", local, iso)
	}
	if out.Location != DefaultLocation {
		t.Errorf("Location = %q; want default %q", out.Location, DefaultLocation)
	}
}

func TestNewCalculator_Defaults(t *testing.T) {
	c := NewCalculator("", nil)
	if c.Location() != DefaultLocation {
		t.Errorf("Location() = %q; want %q", c.Location(), DefaultLocation)
	}
	if c.warn == nil || c.now == nil || c.zone == nil {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestRound2_MatchesFixedTwoDecimals(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 99.985, want: 99.98},
		{in: 2.675, want: 2.67},
		{in: -2.675, want: -2.67},
		{in: 1.005, want: 1},
		{in: 0.125, want: 0.13},
		{in: -0.125, want: -0.13},
		{in: 21.4567, want: 21.46},
		{in: 13.2147, want: 13.21},
		{in: 0.005, want: 0.01},
		{in: 0, want: 0},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}

	if got := round2(-0.004); got != 0 || math.Signbit(got) {
		t.Errorf("round2(-0.004) = %v; want positive zero", got)
	}
	if got := round2(math.Inf(-1)); !math.IsInf(got, -1) {
		t.Errorf("round2(-Inf) = %v; want -Inf", got)
	}
	if got := round2(math.NaN()); !math.IsNaN(got) {
		t.Errorf("round2(NaN) = %v; want NaN", got)
	}
}

func TestCompute_EchoRoundingOnBinaryValue(t *testing.T) {
	c := newTestCalculator(&recordingWarner{})

	out, ok := c.Compute(InputRecord{Temperature: 99.985, Humidity: json.Number("2.675")})
	if !ok {
		t.Fatal("Compute() ok = false; want true")
	}
	if out.Temperature != 99.98 || out.Humidity != 2.67 {
		t.Errorf("echo = (%v, %v); want (99.98, 2.67)", out.Temperature, out.Humidity)
	}
}

func TestCompute_OutOfRangeNumberIsNumeric(t *testing.T) {
	w := &recordingWarner{}
	c := newTestCalculator(w)

	out, ok := c.Compute(InputRecord{Temperature: json.Number("1e400"), Humidity: 65.0})
	if !ok {
		t.Fatal("Compute() ok = false; want overflowing literal treated as +Inf")
	}
	if len(w.msgs) != 0 {
		t.Errorf("warnings = %v; want none", w.msgs)
	}
	if !math.IsInf(out.Temperature, 1) {
		t.Errorf("Temperature = %v; want +Inf", out.Temperature)
	}
}
