// SPDX-License-Identifier: EPL-2.0

// Package observe exports the counters kept by clients, channels and
// backends as OpenTelemetry metrics. Every counter lives in an atomic that
// the real-time side updates; the meter reads them only at collection time,
// so observing adds nothing to the process path.
//
// Tests should use [NewMetrics] with their own [metric.MeterProvider];
// [InitProvider] wires the Prometheus exporter for the command.
package observe

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/internal/engine"
	"github.com/ik5/rtproc/rtchan"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/ik5/rtproc"

// EngineStats is implemented by the bundled backends through their engine.
type EngineStats interface {
	Stats() engine.Stats
}

// Metrics holds the observable instruments and the sources they read.
type Metrics struct {
	channelSent    metric.Int64ObservableCounter
	channelDropped metric.Int64ObservableCounter
	cycles         metric.Int64ObservableCounter
	xruns          metric.Int64ObservableCounter
	midiDropped    metric.Int64ObservableCounter
	reg            metric.Registration

	mu       sync.Mutex
	channels map[string]rtchan.StatsReader
	clients  map[string]*client.AsyncClient
	backends map[string]EngineStats
}

// NewMetrics creates the instruments on mp and registers the collection
// callback.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{
		channels: make(map[string]rtchan.StatsReader),
		clients:  make(map[string]*client.AsyncClient),
		backends: make(map[string]EngineStats),
	}

	var err error
	if met.channelSent, err = m.Int64ObservableCounter("rtproc.channel.sent",
		metric.WithDescription("Items accepted by a bounded real-time channel."),
	); err != nil {
		return nil, err
	}
	if met.channelDropped, err = m.Int64ObservableCounter("rtproc.channel.dropped",
		metric.WithDescription("Items lost because a bounded real-time channel was full."),
	); err != nil {
		return nil, err
	}
	if met.cycles, err = m.Int64ObservableCounter("rtproc.client.cycles",
		metric.WithDescription("Blocks processed by an activated client."),
	); err != nil {
		return nil, err
	}
	if met.xruns, err = m.Int64ObservableCounter("rtproc.backend.xruns",
		metric.WithDescription("Blocks that missed their deadline."),
	); err != nil {
		return nil, err
	}
	if met.midiDropped, err = m.Int64ObservableCounter("rtproc.backend.midi_dropped",
		metric.WithDescription("MIDI events dropped by the backend for lack of buffer space."),
	); err != nil {
		return nil, err
	}

	met.reg, err = m.RegisterCallback(met.observe,
		met.channelSent, met.channelDropped, met.cycles, met.xruns, met.midiDropped)
	if err != nil {
		return nil, fmt.Errorf("observe: register callback: %w", err)
	}
	return met, nil
}

func (m *Metrics) observe(_ context.Context, o metric.Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, s := range m.channels {
		st := s.Stats()
		attrs := metric.WithAttributes(attribute.String("channel", name))
		o.ObserveInt64(m.channelSent, int64(st.Sent), attrs)
		o.ObserveInt64(m.channelDropped, int64(st.Dropped), attrs)
	}
	for name, a := range m.clients {
		o.ObserveInt64(m.cycles, int64(a.Cycles()), metric.WithAttributes(attribute.String("client", name)))
	}
	for name, b := range m.backends {
		st := b.Stats()
		attrs := metric.WithAttributes(attribute.String("backend", name))
		o.ObserveInt64(m.xruns, int64(st.XRuns), attrs)
		o.ObserveInt64(m.midiDropped, int64(st.MidiDropped), attrs)
	}
	return nil
}

// ObserveChannel reports s under the channel attribute name. Observing a name
// again replaces the previous source.
func (m *Metrics) ObserveChannel(name string, s rtchan.StatsReader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = s
}

// ObserveClient reports the block count of a.
func (m *Metrics) ObserveClient(a *client.AsyncClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[a.Client().Name()] = a
}

// ObserveBackend reports xruns and dropped MIDI of b.
func (m *Metrics) ObserveBackend(name string, b EngineStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends[name] = b
}

// Close unregisters the collection callback.
func (m *Metrics) Close() error {
	if err := m.reg.Unregister(); err != nil {
		return fmt.Errorf("observe: unregister callback: %w", err)
	}
	return nil
}
