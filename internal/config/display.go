package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLocation = "Berlin, Germany"
	DefaultTimezone = "Local"
)

// Display controls how derived records are labelled.
type Display struct {
	// Location is the label attached to every record.
	Location string `yaml:"location"`

	// Timezone is the IANA zone for the local timestamp; "Local" uses the host zone.
	Timezone string `yaml:"timezone"`
}

type displayFile struct {
	Display Display `yaml:"display"`
}

// LoadDisplay reads the `display:` section of the YAML file at path.
func LoadDisplay(path string) (Display, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Display{}, fmt.Errorf("display config: read %q: %w", path, err)
	}

	var f displayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Display{}, fmt.Errorf("display config: parse yaml: %w", err)
	}

	d := Display{
		Location: strings.TrimSpace(f.Display.Location),
		Timezone: strings.TrimSpace(f.Display.Timezone),
	}
	if d.Timezone != "" {
		if _, err := d.Zone(); err != nil {
			return Display{}, fmt.Errorf("display config: %w", err)
		}
	}
	return d, nil
}

// Merge returns d with every non-empty field of overlay applied.
func (d Display) Merge(overlay Display) Display {
	if overlay.Location != "" {
		d.Location = overlay.Location
	}
	if overlay.Timezone != "" {
		d.Timezone = overlay.Timezone
	}
	return d
}

// Zone resolves Timezone.
func (d Display) Zone() (*time.Location, error) {
	switch d.Timezone {
	case "", DefaultTimezone:
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

func (d Display) withDefaults() Display {
	if d.Location == "" {
		d.Location = DefaultLocation
	}
	if d.Timezone == "" {
		d.Timezone = DefaultTimezone
	}
	return d
}
