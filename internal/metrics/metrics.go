// Package metrics provides Prometheus instrumentation for the bridge.
package metrics

import (
	"errors"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meterhuis/godsmr/pkg/dsmr"
)

const namespace = "godsmr"

// Metrics holds the collector set for one bridge process.
type Metrics struct {
	// Stream counters
	TelegramsTotal prometheus.Counter
	SkippedTotal   *prometheus.CounterVec
	DiscardedBytes prometheus.Counter
	PublishErrors  prometheus.Counter
	StoreErrors    prometheus.Counter

	// Live meter readings
	ActiveTariff   prometheus.Gauge
	PowerConsuming prometheus.Gauge
	PowerProducing prometheus.Gauge
	EnergyConsumed *prometheus.GaugeVec
	EnergyProduced *prometheus.GaugeVec
	PhaseCurrent   *prometheus.GaugeVec
	PhasePower     *prometheus.GaugeVec
	LastTelegram   prometheus.Gauge
}

// New creates the collector set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TelegramsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegrams_total",
			Help:      "Total number of telegrams decoded with a valid checksum",
		}),
		SkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Total number of skipped parse failures by reason",
		}, []string{"reason"}),
		DiscardedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_bytes_total",
			Help:      "Total number of input bytes dropped while resynchronizing",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_errors_total",
			Help:      "Total number of failed MQTT publishes",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of failed reading log inserts",
		}),
		ActiveTariff: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tariff",
			Help:      "Tariff currently charged by the meter",
		}),
		PowerConsuming: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power_consuming_watts",
			Help:      "Instantaneous power drawn from the grid",
		}),
		PowerProducing: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power_producing_watts",
			Help:      "Instantaneous power delivered to the grid",
		}),
		EnergyConsumed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy_consumed_watthours",
			Help:      "Meter reading of energy consumed per tariff",
		}, []string{"tariff"}),
		EnergyProduced: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy_produced_watthours",
			Help:      "Meter reading of energy produced per tariff",
		}, []string{"tariff"}),
		PhaseCurrent: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_current_amperes",
			Help:      "Instantaneous current per phase",
		}, []string{"phase"}),
		PhasePower: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_power_watts",
			Help:      "Instantaneous power per phase and direction",
		}, []string{"phase", "direction"}),
		LastTelegram: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_telegram_timestamp_seconds",
			Help:      "Unix time of the last accepted telegram",
		}),
	}
}

// ObserveTelegram updates the live reading gauges from a decoded telegram.
func (m *Metrics) ObserveTelegram(t *dsmr.Telegram) {
	m.TelegramsTotal.Inc()
	m.LastTelegram.SetToCurrentTime()
	for _, l := range t.Lines() {
		switch l.Kind {
		case dsmr.LineActiveTariff:
			m.ActiveTariff.Set(float64(l.Value))
		case dsmr.LineTotalConsuming:
			m.PowerConsuming.Set(float64(l.Value))
		case dsmr.LineTotalProducing:
			m.PowerProducing.Set(float64(l.Value))
		case dsmr.LineConsumed:
			m.EnergyConsumed.WithLabelValues(strconv.Itoa(int(l.Tariff))).Set(float64(l.Value))
		case dsmr.LineProduced:
			m.EnergyProduced.WithLabelValues(strconv.Itoa(int(l.Tariff))).Set(float64(l.Value))
		case dsmr.LineCurrent:
			m.PhaseCurrent.WithLabelValues(phaseLabel(l.Phase)).Set(float64(l.Value))
		case dsmr.LineConsuming:
			m.PhasePower.WithLabelValues(phaseLabel(l.Phase), "consuming").Set(float64(l.Value))
		case dsmr.LineProducing:
			m.PhasePower.WithLabelValues(phaseLabel(l.Phase), "producing").Set(float64(l.Value))
		}
	}
}

// ObserveSkip counts one skipped parse failure under its reason label.
func (m *Metrics) ObserveSkip(err error) {
	m.SkippedTotal.WithLabelValues(skipReason(err)).Inc()
}

func skipReason(err error) string {
	var syntaxErr *dsmr.SyntaxError
	var checksumErr *dsmr.ChecksumError
	switch {
	case errors.As(err, &syntaxErr):
		return "syntax"
	case errors.As(err, &checksumErr):
		return "checksum"
	case errors.Is(err, dsmr.ErrInvalidEncoding):
		return "encoding"
	case errors.Is(err, dsmr.ErrBufferOverflow):
		return "overflow"
	}
	return "other"
}

func phaseLabel(p dsmr.Phase) string {
	return strings.ToLower(p.String())
}
