package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/snapshot"
)

func TestFileNames(t *testing.T) {
	cases := []struct {
		label   string
		test    string
		metrics string
	}{
		{"t3.micro", "test_t3_micro.json", "metrics_t3_micro.json"},
		{"t3.medium", "test_t3_medium.json", "metrics_t3_medium.json"},
		{"m5.2xlarge.gpu", "test_m5_2xlarge_gpu.json", "metrics_m5_2xlarge_gpu.json"},
		{"local", "test_local.json", "metrics_local.json"},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.test, snapshot.TestFileName(tc.label))
			assert.Equal(t, tc.metrics, snapshot.MetricsFileName(tc.label))
		})
	}
}

func TestNew_HasEmptyInstances(t *testing.T) {
	s := snapshot.New()
	assert.NotNil(t, s.Instances)
	assert.Empty(t, s.Instances)
	assert.Nil(t, s.Optimization)
	assert.Nil(t, s.Summary)
}
