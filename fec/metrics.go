package fec

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts codec activity
type Metrics struct {
	EncodedUnits           prometheus.Counter
	DecodedUnits           prometheus.Counter
	CorrectedSymbols       prometheus.Counter
	UncorrectableCodewords prometheus.Counter
	DroppedSymbols         prometheus.Counter
	UnresolvedRows         prometheus.Counter
}

// NewMetrics creates the codec counters and registers them with reg unless
// reg is nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EncodedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fec",
			Name:      "encoded_units_total",
			Help:      "Number of data units encoded.",
		}),
		DecodedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fec",
			Name:      "decoded_units_total",
			Help:      "Number of data units decoded without error.",
		}),
		CorrectedSymbols: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fec",
			Name:      "corrected_symbols_total",
			Help:      "Number of outer code symbols repaired.",
		}),
		UncorrectableCodewords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fec",
			Name:      "uncorrectable_codewords_total",
			Help:      "Number of outer codewords that failed correction.",
		}),
		DroppedSymbols: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fec",
			Name:      "dropped_inner_symbols_total",
			Help:      "Number of malformed inner symbols discarded.",
		}),
		UnresolvedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fec",
			Name:      "unresolved_rows_total",
			Help:      "Number of inner source symbols left unresolved.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.EncodedUnits,
			m.DecodedUnits,
			m.CorrectedSymbols,
			m.UncorrectableCodewords,
			m.DroppedSymbols,
			m.UnresolvedRows,
		)
	}
	return m
}

func (m *Metrics) observeDecode(r *Report, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.DecodedUnits.Inc()
	}
	m.CorrectedSymbols.Add(float64(r.Corrected))
	m.UncorrectableCodewords.Add(float64(r.Uncorrectable))
	m.DroppedSymbols.Add(float64(r.Dropped))
	m.UnresolvedRows.Add(float64(r.Missing))
}
