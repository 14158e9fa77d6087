package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sceneforge/api/internal/model"
)

func TestWebhookClient_Notify(t *testing.T) {
	var received model.CompositionResult
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("webhook body did not decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewWebhookClient(5 * time.Second)
	result := &model.CompositionResult{
		JobID:        "job-1",
		Status:       model.JobStatusCompleted,
		VideoURL:     "https://cdn.test/v.mp4",
		ThumbnailURL: "https://cdn.test/t.jpg",
		DurationMs:   10000,
	}

	if err := c.Notify(context.Background(), server.URL, result); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if received.JobID != "job-1" || received.Status != model.JobStatusCompleted {
		t.Errorf("unexpected payload %+v", received)
	}
	if received.DurationMs != 10000 {
		t.Errorf("durationMs = %v, want 10000", received.DurationMs)
	}
}

func TestWebhookClient_NotifyNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "receiver down", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewWebhookClient(5 * time.Second)
	err := c.Notify(context.Background(), server.URL, &model.CompositionResult{JobID: "job-1"})
	if err == nil {
		t.Error("expected error for 500 response")
	}
}
