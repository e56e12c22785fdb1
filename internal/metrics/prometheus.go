package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "arbitage"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry      *prometheus.Registry
	ticks         prometheus.Counter
	fetchFailed   prometheus.Counter
	opportunities prometheus.Counter
	ordersPlaced  prometheus.Counter
	ordersFailed  prometheus.Counter
	manualTrades  prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "ticks_total",
		Help:      "Total number of evaluation cycles run.",
	})
	fetchFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "fetch_failed_total",
		Help:      "Total number of price fetch failures.",
	})
	opportunities := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "opportunities_total",
		Help:      "Total number of evaluations that met the profit threshold.",
	})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of orders placed.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_failed_total",
		Help:      "Total number of order placement failures.",
	})
	manualTrades := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "manual_trades_total",
		Help:      "Total number of manual trade requests accepted.",
	})

	registry.MustRegister(ticks, fetchFailed, opportunities, ordersPlaced, ordersFailed, manualTrades)

	m := &Metrics{
		Ticks:         promCounter{ticks},
		FetchFailed:   promCounter{fetchFailed},
		Opportunities: promCounter{opportunities},
		OrdersPlaced:  promCounter{ordersPlaced},
		OrdersFailed:  promCounter{ordersFailed},
		ManualTrades:  promCounter{manualTrades},
	}

	return &Prometheus{
		Metrics:       m,
		registry:      registry,
		ticks:         ticks,
		fetchFailed:   fetchFailed,
		opportunities: opportunities,
		ordersPlaced:  ordersPlaced,
		ordersFailed:  ordersFailed,
		manualTrades:  manualTrades,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
