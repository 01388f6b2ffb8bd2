package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"adaptstudio/internal/core"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveUpload(core.SlotProduct, 2048, nil)
	m.ObserveUpload(core.SlotProduct, 99, core.NewValidationError(core.MessageNotAnImage))
	m.ObserveGeneration("gemini", nil, 12*time.Second)
	m.ObserveGeneration("gemini", core.NewNoImageError("gemini"), time.Second)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("product", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("product", "validation_error")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.uploadBytes.WithLabelValues("product")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("gemini", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("gemini", "no_image_produced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "generation_failed", Outcome(core.NewGenerationError("g", "quota exceeded", nil)))
	assert.Equal(t, "error", Outcome(errors.New("plain")))
}
