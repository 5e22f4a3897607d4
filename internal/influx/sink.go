// Package influx writes derived records to InfluxDB v3.
package influx

import (
	"context"
	"fmt"
	"math"

	"envirogram/internal/derived"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

const Measurement = "derived_metrics"

type pointWriter interface {
	WritePoints(ctx context.Context, points []*influxdb3.Point, options ...influxdb3.WriteOption) error
}

type Sink struct {
	writer pointWriter
	client *influxdb3.Client
}

// New connects to host/database with token.
func New(host, token, database string) (*Sink, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     host,
		Token:    token,
		Database: database,
	})
	if err != nil {
		return nil, fmt.Errorf("influx client: %w", err)
	}
	return &Sink{writer: client, client: client}, nil
}

func (s *Sink) Name() string { return "influx" }

func (s *Sink) Consume(ctx context.Context, rec derived.OutputRecord) error {
	if err := s.writer.WritePoints(ctx, []*influxdb3.Point{NewPoint(rec)}); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// NewPoint converts rec into a point. Non-finite values are left out because line
// protocol cannot carry them.
func NewPoint(rec derived.OutputRecord) *influxdb3.Point {
	p := influxdb3.NewPointWithMeasurement(Measurement).
		SetTag("location", rec.Location).
		SetTimestamp(rec.Time.UTC())

	for name, v := range rec.Fields() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		p.SetDoubleField(name, v)
	}
	return p
}
