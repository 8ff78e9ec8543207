package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	Registry              *prometheus.Registry
	TransfersSentCounter  *prometheus.CounterVec
	PacketsRecvCounter    *prometheus.CounterVec
	AcksCounter           *prometheus.CounterVec
	TimeoutsCounter       *prometheus.CounterVec
	GateRejectionsCounter *prometheus.CounterVec
	EscrowedTokensGauge   *prometheus.GaugeVec
	RefundFailuresCounter *prometheus.CounterVec
}

func (m *PrometheusMetrics) AddTransfersSent(chain, channel, action string, count int) {
	if m == nil {
		return
	}
	m.TransfersSentCounter.WithLabelValues(chain, channel, action).Add(float64(count))
}

func (m *PrometheusMetrics) IncPacketsReceived(chain, channel, result string) {
	if m == nil {
		return
	}
	m.PacketsRecvCounter.WithLabelValues(chain, channel, result).Inc()
}

func (m *PrometheusMetrics) IncAcks(chain, channel, result string) {
	if m == nil {
		return
	}
	m.AcksCounter.WithLabelValues(chain, channel, result).Inc()
}

func (m *PrometheusMetrics) IncTimeouts(chain, channel string) {
	if m == nil {
		return
	}
	m.TimeoutsCounter.WithLabelValues(chain, channel).Inc()
}

func (m *PrometheusMetrics) IncGateRejections(chain, channel, direction string) {
	if m == nil {
		return
	}
	m.GateRejectionsCounter.WithLabelValues(chain, channel, direction).Inc()
}

func (m *PrometheusMetrics) AddEscrowedTokens(chain, channel string, delta int) {
	if m == nil {
		return
	}
	m.EscrowedTokensGauge.WithLabelValues(chain, channel).Add(float64(delta))
}

// SetEscrowedTokens overwrites the gauge with a count read from state.
func (m *PrometheusMetrics) SetEscrowedTokens(chain, channel string, count int) {
	if m == nil {
		return
	}
	m.EscrowedTokensGauge.WithLabelValues(chain, channel).Set(float64(count))
}

func (m *PrometheusMetrics) IncRefundFailures(chain, channel string) {
	if m == nil {
		return
	}
	m.RefundFailuresCounter.WithLabelValues(chain, channel).Inc()
}

func NewPrometheusMetrics() *PrometheusMetrics {
	sendLabels := []string{"chain", "channel", "action"}
	resultLabels := []string{"chain", "channel", "result"}
	channelLabels := []string{"chain", "channel"}
	gateLabels := []string{"chain", "channel", "direction"}
	registry := prometheus.NewRegistry()
	registerer := promauto.With(registry)
	return &PrometheusMetrics{
		Registry: registry,
		TransfersSentCounter: registerer.NewCounterVec(prometheus.CounterOpts{
			Name: "ics721_sent_tokens",
			Help: "The total number of NFTs sent to a counterparty chain",
		}, sendLabels),
		PacketsRecvCounter: registerer.NewCounterVec(prometheus.CounterOpts{
			Name: "ics721_received_packets",
			Help: "The total number of ICS-721 packets received, by acknowledgement result",
		}, resultLabels),
		AcksCounter: registerer.NewCounterVec(prometheus.CounterOpts{
			Name: "ics721_acknowledgements",
			Help: "The total number of acknowledgements processed, by result",
		}, resultLabels),
		TimeoutsCounter: registerer.NewCounterVec(prometheus.CounterOpts{
			Name: "ics721_timeouts",
			Help: "The total number of timed out transfers",
		}, channelLabels),
		GateRejectionsCounter: registerer.NewCounterVec(prometheus.CounterOpts{
			Name: "ics721_gate_rejections",
			Help: "The total number of transfers rejected by a channel policy gate",
		}, gateLabels),
		EscrowedTokensGauge: registerer.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ics721_escrowed_tokens",
			Help: "The number of NFTs currently held in escrow per channel",
		}, channelLabels),
		RefundFailuresCounter: registerer.NewCounterVec(prometheus.CounterOpts{
			Name: "ics721_refund_failures",
			Help: "The total number of tokens that could not be refunded",
		}, channelLabels),
	}
}
