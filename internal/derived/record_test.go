package derived

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestInputRecord_UnmarshalJSON(t *testing.T) {
	t.Run("numbers stay json.Number", func(t *testing.T) {
		var in InputRecord
		if err := json.Unmarshal([]byte(`{"temperature": 20, "humidity": 65.5}`), &in); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if in.Temperature != json.Number("20") {
			t.Errorf("Temperature = %#v; want json.Number(20)", in.Temperature)
		}
		if in.Humidity != json.Number("65.5") {
			t.Errorf("Humidity = %#v; want json.Number(65.5)", in.Humidity)
		}
	})

	t.Run("quoted number stays a string", func(t *testing.T) {
		var in InputRecord
		if err := json.Unmarshal([]byte(`{"temperature": "20", "humidity": 65}`), &in); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if in.Temperature != "20" {
			t.Errorf("Temperature = %#v; want string 20", in.Temperature)
		}
	})

	t.Run("missing and null fields are nil", func(t *testing.T) {
		var in InputRecord
		if err := json.Unmarshal([]byte(`{"humidity": null}`), &in); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if in.Temperature != nil || in.Humidity != nil {
			t.Errorf("record = %#v; want both nil", in)
		}
	})

	t.Run("non-object is rejected", func(t *testing.T) {
		for _, body := range []string{`[1,2]`, `"x"`, `42`, `{"temperature":`} {
			var in InputRecord
			if err := json.Unmarshal([]byte(body), &in); err == nil {
				t.Errorf("Unmarshal(%s) err = nil; want error", body)
			}
		}
	})
}

func TestOutputRecord_MarshalJSON(t *testing.T) {
	rec := OutputRecord{
		Temperature:        20,
		Humidity:           0,
		DewPoint:           math.NaN(),
		AbsoluteHumidity:   0,
		DewPointDepression: math.Inf(1),
		LocalTimestamp:     "03/14/2026, 09:26:53",
		ISOTimestamp:       "2026-03-14T09:26:53.589Z",
		Location:           "Berlin, Germany",
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got["dewPoint"] != nil || got["dewPointDepression"] != nil {
		t.Errorf("non-finite fields = %v, %v; want null", got["dewPoint"], got["dewPointDepression"])
	}
	if got["temperature"] != 20.0 {
		t.Errorf("temperature = %v; want 20", got["temperature"])
	}
	if got["timestamp"] != "03/14/2026, 09:26:53" {
		t.Errorf("timestamp = %v; want local timestamp", got["timestamp"])
	}
	for _, key := range []string{"humidity", "absoluteHumidity", "isoTimestamp", "location"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}

	var back OutputRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal back: %v", err)
	}
	if !math.IsNaN(back.DewPoint) {
		t.Errorf("DewPoint = %v; want NaN for null", back.DewPoint)
	}
	if !back.Time.Equal(time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)) {
		t.Errorf("Time = %v; want parsed isoTimestamp", back.Time)
	}
}

func TestParsePlainValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{in: "21.3", want: json.Number("21.3")},
		{in: " 65 \n", want: json.Number("65")},
		{in: "-4.5e1", want: json.Number("-4.5e1")},
		{in: "1e400", want: json.Number("1e400")},
		{in: `"20"`, want: `"20"`},
		{in: "nan", want: "nan"},
		{in: "", want: ""},
		{in: "null", want: "null"},
		{in: "true", want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParsePlainValue([]byte(tt.in)); got != tt.want {
				t.Errorf("ParsePlainValue(%q) = %#v; want %#v", tt.in, got, tt.want)
			}
		})
	}
}
