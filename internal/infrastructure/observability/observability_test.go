package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestInitLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger("dinero-test", "info", "json", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("gateway", "authorizenet").Msg("resolved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dinero-test", entry["service"])
	assert.Equal(t, "authorizenet", entry["gateway"])
	assert.Equal(t, "resolved", entry["message"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithFields(InitLogger("svc", "info", "", &buf), map[string]any{"call_id": "abc"})

	logger.Info().Msg("x")
	assert.Contains(t, buf.String(), `"call_id":"abc"`)
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.GatewayRequestsTotal.WithLabelValues("authorizenet", "charge", "success").Inc()
	m.PaymentRejections.WithLabelValues("authorizenet", "cvv").Inc()
	m.CircuitBreakerState.WithLabelValues("apitest.authorize.net").Set(0)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_gateway_requests_total"])
	assert.True(t, names["test_payment_rejections_total"])
	assert.True(t, names["test_circuit_breaker_state"])
}
