// Package join pairs temperature and humidity values that arrive as separate messages
// into one derived.InputRecord.
//
// Stations publish the two readings on different topics a few milliseconds apart. The
// Joiner keeps the latest pending value of each kind and emits a record once both are
// present, then starts over. A pending value older than the window is discarded so a
// lost message never pairs readings taken minutes apart.
package join

import (
	"fmt"
	"sync"
	"time"

	"envirogram/internal/derived"
)

// Kind identifies which reading a value carries.
type Kind int

const (
	Temperature Kind = iota
	Humidity
)

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type pending struct {
	value any
	at    time.Time
	set   bool
}

// Joiner is safe for concurrent use.
type Joiner struct {
	window time.Duration
	now    func() time.Time

	mu          sync.Mutex
	temperature pending
	humidity    pending
}

// New returns a Joiner that pairs values arriving within window of each other.
func New(window time.Duration) *Joiner {
	return &Joiner{window: window, now: time.Now}
}

// Offer stores v as the latest value of kind. It returns a complete record when the
// other kind is already pending.
func (j *Joiner) Offer(kind Kind, v any) (derived.InputRecord, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	j.expire(now)

	p := pending{value: v, at: now, set: true}
	switch kind {
	case Temperature:
		j.temperature = p
	case Humidity:
		j.humidity = p
	default:
		return derived.InputRecord{}, false
	}

	if !j.temperature.set || !j.humidity.set {
		return derived.InputRecord{}, false
	}

	rec := derived.InputRecord{
		Temperature: j.temperature.value,
		Humidity:    j.humidity.value,
	}
	j.temperature = pending{}
	j.humidity = pending{}
	return rec, true
}

// Pending reports which kinds are currently waiting for a partner.
func (j *Joiner) Pending() (temperature, humidity bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.expire(j.now())
	return j.temperature.set, j.humidity.set
}

func (j *Joiner) expire(now time.Time) {
	if j.temperature.set && now.Sub(j.temperature.at) > j.window {
		j.temperature = pending{}
	}
	if j.humidity.set && now.Sub(j.humidity.at) > j.window {
		j.humidity = pending{}
	}
}
