package authcore

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsFollowFlows(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testEmail, testPassword)
	env.login(testEmail, "Wrong!Pass1", testOrigin)
	require.True(t, env.login(testEmail, testPassword, testOrigin).Success)

	_, err := env.engine.Authenticate(context.Background(), "garbage")
	require.Error(t, err)

	env.engine.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: testEmail})
	env.engine.ResetPassword(context.Background(), ResetPasswordRequest{Token: "bogus", Password: testPassword})

	c := env.engine.MetricsSnapshot().Counters
	assert.Equal(t, uint64(1), c[MetricRegistration])
	assert.Equal(t, uint64(1), c[MetricLoginFailure])
	assert.Equal(t, uint64(1), c[MetricLoginSuccess])
	assert.Equal(t, uint64(1), c[MetricAuthenticateFailure])
	assert.Equal(t, uint64(1), c[MetricPasswordResetRequest])
	assert.Equal(t, uint64(1), c[MetricPasswordResetFailure])
	assert.Zero(t, c[MetricLockoutFailOpen])
}

func TestLoginLatencyHistogram(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *docstore.Store) {
		cfg.Metrics.EnableLatencyHistograms = true
	})
	env.register(t, testEmail, testPassword)
	env.login(testEmail, testPassword, testOrigin)
	env.login(testEmail, "Wrong!Pass1", testOrigin)

	var total uint64
	for _, n := range env.engine.MetricsSnapshot().Histograms[MetricLoginLatency] {
		total += n
	}
	assert.Equal(t, uint64(2), total)
}

func TestMetricsDisabledEngine(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *docstore.Store) {
		cfg.Metrics.Enabled = false
	})
	env.register(t, testEmail, testPassword)

	snap := env.engine.MetricsSnapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Histograms)
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginRateLimited)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(16000), m.Value(MetricLoginRateLimited))
}
