package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "baserate"

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	CycleDuration     *prometheus.HistogramVec
	Cycles            *prometheus.CounterVec
	MarketsFetched    *prometheus.GaugeVec
	CollaboratorCalls *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
	ResearchCalls     *prometheus.CounterVec
	Opportunities     prometheus.Gauge
	PaperTrades       *prometheus.CounterVec
	Settlements       *prometheus.CounterVec
	LedgerBalance     prometheus.Gauge
	LedgerEquity      prometheus.Gauge
	ReportSubscribers prometheus.Gauge
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of pipeline cycles in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"result"},
		),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Total pipeline cycles by result",
			},
			[]string{"result"},
		),
		MarketsFetched: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "markets_fetched",
				Help:      "Markets returned by the last fetch per platform",
			},
			[]string{"platform"},
		),
		CollaboratorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaborator_calls_total",
				Help:      "External collaborator calls by collaborator and result",
			},
			[]string{"collaborator", "result"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"collaborator"},
		),
		ResearchCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "research_total",
				Help:      "Research attempts by result (ok, failed, deferred, skipped)",
			},
			[]string{"result"},
		),
		Opportunities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "opportunities",
				Help:      "Opportunities passing the filter in the last cycle",
			},
		),
		PaperTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "paper_trades_total",
				Help:      "Automatic paper trades by status",
			},
			[]string{"status"},
		),
		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_total",
				Help:      "Settled paper positions by outcome",
			},
			[]string{"outcome"},
		),
		LedgerBalance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_balance_dollars",
				Help:      "Paper ledger cash balance",
			},
		),
		LedgerEquity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_equity_dollars",
				Help:      "Paper ledger balance plus marked open positions",
			},
		),
		ReportSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "report_subscribers",
				Help:      "Connected WebSocket report subscribers",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CycleDuration,
		m.Cycles,
		m.MarketsFetched,
		m.CollaboratorCalls,
		m.BreakerState,
		m.ResearchCalls,
		m.Opportunities,
		m.PaperTrades,
		m.Settlements,
		m.LedgerBalance,
		m.LedgerEquity,
		m.ReportSubscribers,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.WithLabelValues(result).Observe(d.Seconds())
}

// SetMarketsFetched records the size of a platform's last fetch.
func (m *Metrics) SetMarketsFetched(platform string, n int) {
	if m == nil {
		return
	}
	m.MarketsFetched.WithLabelValues(platform).Set(float64(n))
}

// CollaboratorCall counts one guarded call.
func (m *Metrics) CollaboratorCall(collaborator, result string) {
	if m == nil {
		return
	}
	m.CollaboratorCalls.WithLabelValues(collaborator, result).Inc()
}

// SetBreakerState records a breaker transition.
func (m *Metrics) SetBreakerState(collaborator string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(collaborator).Set(float64(state))
}

// Research counts research attempts by result.
func (m *Metrics) Research(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ResearchCalls.WithLabelValues(result).Add(float64(n))
}

// SetOpportunities records the filtered opportunity count.
func (m *Metrics) SetOpportunities(n int) {
	if m == nil {
		return
	}
	m.Opportunities.Set(float64(n))
}

// PaperTrade counts one automatic trade attempt.
func (m *Metrics) PaperTrade(status string) {
	if m == nil {
		return
	}
	m.PaperTrades.WithLabelValues(status).Inc()
}

// Settlement counts settled positions.
func (m *Metrics) Settlement(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Settlements.WithLabelValues(outcome).Add(float64(n))
}

// SetLedger records the ledger's balance and equity in dollars.
func (m *Metrics) SetLedger(balance, equity float64) {
	if m == nil {
		return
	}
	m.LedgerBalance.Set(balance)
	m.LedgerEquity.Set(equity)
}

// SetSubscribers records the number of report subscribers.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.ReportSubscribers.Set(float64(n))
}
