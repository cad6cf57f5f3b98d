package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestComputeStats(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{3, 1, 2}, 1)
	assert.Equal(t, 3, s.ops)
	assert.Equal(t, int64(1), s.failures)
	assert.Equal(t, time.Duration(2), s.p50)
	assert.InDelta(t, 3.0, s.opsPerS, 1e-9)
}

func TestRunSmall(t *testing.T) {
	require.NoError(t, run(context.Background(), options{users: 3, concurrency: 2, ops: 6, prefix: "t"}))
}
