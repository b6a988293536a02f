// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, StatusSuccess, Outcome(nil))
	assert.Equal(t, StatusFailure, Outcome(errors.New("boom")))
}

func TestGenerationTotalCountsByLabel(t *testing.T) {
	before := testutil.ToFloat64(GenerationTotal.WithLabelValues("refine", StatusFailure))

	GenerationTotal.WithLabelValues("refine", StatusFailure).Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(GenerationTotal.WithLabelValues("refine", StatusFailure)))
}
