package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_helpersAreNoopsBeforeSetup(t *testing.T) {
	offerCounter, orderCounter = nil, nil
	tradeCounter, tradeVolume = nil, nil
	sweepCounter, sweptGauge, bookGauge = nil, nil, nil

	// must not panic without a registry
	OfferEvent("created")
	OrderEvent("enabled")
	TradeSettled(600)
	SweepRun(2)
	BookCount(1)
}

func TestMetrics_setupAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Setup(reg))

	OfferEvent("created")
	OfferEvent("created")
	OfferEvent("enabled")
	TradeSettled(600)
	TradeSettled(150)
	BookCount(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(offerCounter.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(offerCounter.WithLabelValues("enabled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(tradeCounter))
	assert.Equal(t, 750.0, testutil.ToFloat64(tradeVolume))
	assert.Equal(t, 3.0, testutil.ToFloat64(bookGauge))
}

func TestMetrics_doubleSetupFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Setup(reg))
	assert.Error(t, Setup(reg), "re-registering the same collectors must fail")
}
