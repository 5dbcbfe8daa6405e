package outbox

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTopicFor(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		event  string
		want   string
	}{
		{"aggregate prefix from event name", "", "offer.accepted", "offer.events.v1"},
		{"nested event name", "", "buy_request.closed", "buy_request.events.v1"},
		{"no dot falls back to full name", "", "heartbeat", "heartbeat.events.v1"},
		{"configured prefix", "staging.", "offer.accepted", "staging.offer.events.v1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &Worker{TopicPrefix: tc.prefix}
			if got := w.topicFor(tc.event); got != tc.want {
				t.Fatalf("topicFor(%q) = %q, want %q", tc.event, got, tc.want)
			}
		})
	}
}

func TestFormatPayload(t *testing.T) {
	w := &Worker{Source: "app://test"}
	doc := &EventDocument{
		ID:         "evt-1",
		Name:       "offer.accepted",
		Aggregate:  "off-1",
		Payload:    []byte(`{"OfferID":"off-1","PriceCents":4500000}`),
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
		OccurredAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	payload, headers, err := w.formatPayload(doc)
	if err != nil {
		t.Fatalf("formatPayload() error = %v", err)
	}
	if headers["content-type"] != "application/cloudevents+json" {
		t.Fatalf("content-type = %q", headers["content-type"])
	}
	if headers["traceparent"] != "00-abc-def-01" {
		t.Fatalf("traceparent header lost: %v", headers)
	}

	var evt map[string]any
	if err := json.Unmarshal(payload, &evt); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if evt["specversion"] != "1.0" {
		t.Fatalf("specversion = %v", evt["specversion"])
	}
	if evt["type"] != "offer.accepted.v1" {
		t.Fatalf("type = %v", evt["type"])
	}
	if evt["source"] != "app://test" {
		t.Fatalf("source = %v", evt["source"])
	}
	if evt["id"] == "" || evt["id"] == nil {
		t.Fatal("missing event id")
	}
	data, ok := evt["data"].(map[string]any)
	if !ok || data["OfferID"] != "off-1" {
		t.Fatalf("data = %v", evt["data"])
	}
	if evt["traceparent"] != "00-abc-def-01" {
		t.Fatalf("traceparent not embedded: %v", evt["traceparent"])
	}
}

func TestFormatPayloadRejectsMalformedData(t *testing.T) {
	w := &Worker{}
	doc := &EventDocument{Name: "offer.accepted", Payload: []byte("not json")}
	if _, _, err := w.formatPayload(doc); err == nil {
		t.Fatal("expected an error for malformed payload")
	}
}

func TestNextRetryBackoff(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}}
	now := time.Now()
	cases := []struct {
		attempts int
		min      time.Duration
	}{
		{0, time.Second},
		{1, 5 * time.Second},
		{2, 30 * time.Second},
		{9, 30 * time.Second}, // past the table, stays at the last step
	}
	for _, tc := range cases {
		next := w.nextRetry(tc.attempts)
		if next.Before(now.Add(tc.min - 100*time.Millisecond)) {
			t.Fatalf("attempts %d: retry at %v, want >= %v out", tc.attempts, next.Sub(now), tc.min)
		}
	}
}

func TestWorkerDefaults(t *testing.T) {
	w := &Worker{}
	if w.interval() != 500*time.Millisecond {
		t.Fatalf("interval = %v", w.interval())
	}
	if w.source() != "app://locompro" {
		t.Fatalf("source = %q", w.source())
	}
}

func TestWorkerIDIsStable(t *testing.T) {
	w := &Worker{}
	first := w.workerID()
	if first == "" {
		t.Fatal("workerID() = empty")
	}
	if second := w.workerID(); second != first {
		t.Fatalf("workerID() = %q then %q, want one identity across claims", first, second)
	}

	named := &Worker{ID: "worker-7"}
	if got := named.workerID(); got != "worker-7" {
		t.Fatalf("workerID() = %q, want the configured id", got)
	}
}
