package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/tpmsrelay/internal/domain"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.FrameDecoded(domain.VariantClassic)
	r.FrameDecoded(domain.VariantClassic)
	r.DecodeFailed(domain.VariantClassic, "ABORT_LENGTH")
	r.FrameUnmatched()
	r.QueueUpserted()
	r.QueueFull()
	r.QueueSize(3)
	r.Transmitted(true)
	r.Transmitted(false)
	r.Evicted()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"decoded classic", testutil.ToFloat64(r.decoded.WithLabelValues("classic")), 2},
		{"failures", testutil.ToFloat64(r.decodeFailures.WithLabelValues("classic", "ABORT_LENGTH")), 1},
		{"unmatched", testutil.ToFloat64(r.unmatched), 1},
		{"upserts", testutil.ToFloat64(r.upserts), 1},
		{"queue full", testutil.ToFloat64(r.queueFull), 1},
		{"queue size", testutil.ToFloat64(r.queueSize), 3},
		{"sent ok", testutil.ToFloat64(r.transmissions.WithLabelValues("ok")), 1},
		{"sent error", testutil.ToFloat64(r.transmissions.WithLabelValues("error")), 1},
		{"evictions", testutil.ToFloat64(r.evictions), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.CaptureDropped()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tpmsrelay_captures_dropped_total 1") {
		t.Errorf("exposition missing captures_dropped_total:\n%s", body)
	}
}
