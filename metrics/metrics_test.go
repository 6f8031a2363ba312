package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterWiresAllCollectors(t *testing.T) {
	r := New()
	reg := prometheus.NewRegistry()
	r.MustRegister(reg)

	r.H1ActiveConnections.Set(3)
	r.H1ExchangesTotal.WithLabelValues("server").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["httpengine_h1_active_connections"])
	assert.True(t, names["httpengine_h1_exchanges_total"])
	assert.True(t, names["httpengine_h2_active_streams"])
	assert.True(t, names["httpengine_h2_connection_window_bytes"])
	assert.True(t, names["httpengine_dispatch_in_flight_requests"])
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	_ = g.Write(&m)
	return m.GetGauge().GetValue()
}

func TestGaugeSetReflectsValue(t *testing.T) {
	r := New()
	r.H2ActiveStreams.Set(5)
	assert.Equal(t, float64(5), gaugeValue(r.H2ActiveStreams))
}
