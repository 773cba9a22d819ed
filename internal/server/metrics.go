package server

import (
	"io"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Metrics holds per-operation counters and timers.
type Metrics struct {
	registry metrics.Registry

	encryptOK   metrics.Counter
	encryptFail metrics.Counter
	decryptOK   metrics.Counter
	decryptFail metrics.Counter
	encryptTime metrics.Timer
	decryptTime metrics.Timer
	requests    metrics.Meter
}

func NewMetrics() *Metrics {
	r := metrics.NewRegistry()
	return &Metrics{
		registry:    r,
		encryptOK:   metrics.NewRegisteredCounter("encrypt.ok", r),
		encryptFail: metrics.NewRegisteredCounter("encrypt.error", r),
		decryptOK:   metrics.NewRegisteredCounter("decrypt.ok", r),
		decryptFail: metrics.NewRegisteredCounter("decrypt.error", r),
		encryptTime: metrics.NewRegisteredTimer("encrypt.duration", r),
		decryptTime: metrics.NewRegisteredTimer("decrypt.duration", r),
		requests:    metrics.NewRegisteredMeter("http.requests", r),
	}
}

func (m *Metrics) observeEncrypt(start time.Time, err error) {
	m.encryptTime.UpdateSince(start)
	if err != nil {
		m.encryptFail.Inc(1)
		return
	}
	m.encryptOK.Inc(1)
}

func (m *Metrics) observeDecrypt(start time.Time, err error) {
	m.decryptTime.UpdateSince(start)
	if err != nil {
		m.decryptFail.Inc(1)
		return
	}
	m.decryptOK.Inc(1)
}

// WriteJSON writes a snapshot of all metrics.
func (m *Metrics) WriteJSON(w io.Writer) {
	metrics.WriteJSONOnce(m.registry, w)
}

// Stop releases the meter's ticker goroutine registration.
func (m *Metrics) Stop() {
	m.requests.Stop()
}
