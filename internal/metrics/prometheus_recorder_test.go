package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("read", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("read", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.AddOutputs("post", 3)
	pr.AddOutputs("page", 0)
	pr.SetLastBuild(time.Unix(1700000000, 0))

	assert.InDelta(t, 1, testutil.ToFloat64(pr.stageResults.WithLabelValues("read", "success")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.outputs.WithLabelValues("post")), 0)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(pr.lastBuild), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
	assert.Same(t, reg, pr.Registry())
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("read", time.Second)
	pr.IncBuildOutcome(BuildOutcomeFailed)
	pr.AddOutputs("post", 1)
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	path := filepath.Join(t.TempDir(), "sitebuilder.prom")
	require.NoError(t, WriteTextfile(path, pr.Registry()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `sitebuilder_build_outcomes_total{outcome="success"} 1`))
}
