package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	offerCounter *prometheus.CounterVec
	orderCounter *prometheus.CounterVec
	tradeCounter prometheus.Counter
	tradeVolume  prometheus.Counter
	sweepCounter prometheus.Counter
	sweptGauge   prometheus.Gauge
	bookGauge    prometheus.Gauge
)

// Setup registers the marketplace collectors with the given registerer.
// Pass prometheus.DefaultRegisterer outside of tests.
func Setup(r prometheus.Registerer) error {
	offerCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Name:      "sell_offers_total",
		Help:      "Number of sell offers by lifecycle event",
	}, []string{"event"})
	orderCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Name:      "buy_orders_total",
		Help:      "Number of buy orders by lifecycle event",
	}, []string{"event"})
	tradeCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "market",
		Name:      "trades_total",
		Help:      "Number of settled trades",
	})
	tradeVolume = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "market",
		Name:      "trade_coins_total",
		Help:      "Gross coins exchanged by settled trades",
	})
	sweepCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "market",
		Name:      "expiry_sweeps_total",
		Help:      "Number of expiration sweeps run",
	})
	sweptGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "market",
		Name:      "expired_last_sweep",
		Help:      "Entities expired by the most recent sweep",
	})
	bookGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "market",
		Name:      "order_books",
		Help:      "Number of live per-item order books",
	})
	for _, c := range []prometheus.Collector{
		offerCounter, orderCounter, tradeCounter, tradeVolume,
		sweepCounter, sweptGauge, bookGauge,
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// OfferEvent counts a sell offer lifecycle event (created, enabled, ...).
func OfferEvent(event string) {
	if offerCounter != nil {
		offerCounter.WithLabelValues(event).Inc()
	}
}

// OrderEvent counts a buy order lifecycle event.
func OrderEvent(event string) {
	if orderCounter != nil {
		orderCounter.WithLabelValues(event).Inc()
	}
}

// TradeSettled counts one settled trade and its gross coins.
func TradeSettled(gross uint64) {
	if tradeCounter != nil {
		tradeCounter.Inc()
		tradeVolume.Add(float64(gross))
	}
}

// SweepRun records an expiration sweep and how many entities it expired.
func SweepRun(expired int) {
	if sweepCounter != nil {
		sweepCounter.Inc()
		sweptGauge.Set(float64(expired))
	}
}

// BookCount publishes the number of live per-item books.
func BookCount(n int) {
	if bookGauge != nil {
		bookGauge.Set(float64(n))
	}
}
