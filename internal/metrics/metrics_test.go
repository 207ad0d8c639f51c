package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(events.WithLabelValues("order", "create"))
	RecordEvent("order", "create")
	RecordEvent("order", "create")

	got := testutil.ToFloat64(events.WithLabelValues("order", "create"))
	if got-before != 2 {
		t.Errorf("events_total{order,create} grew by %v, want 2", got-before)
	}
}

func TestObserveRequestUnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	ObserveRequest("GET", "", http.StatusNotFound, time.Millisecond)

	got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	if got-before != 1 {
		t.Errorf("unmatched counter grew by %v, want 1", got-before)
	}
}

func TestRequestStartedBalances(t *testing.T) {
	before := testutil.ToFloat64(httpInFlight)
	done := RequestStarted()
	if got := testutil.ToFloat64(httpInFlight); got != before+1 {
		t.Fatalf("in flight = %v, want %v", got, before+1)
	}
	done()
	if got := testutil.ToFloat64(httpInFlight); got != before {
		t.Errorf("in flight after done = %v, want %v", got, before)
	}
}

func TestHandlerExposesSeries(t *testing.T) {
	RecordEvent("product", "delete")
	ObserveLineItems(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`inventory_events_total{action="delete",entity="product"}`,
		"inventory_order_line_items_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
