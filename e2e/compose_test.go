package e2e

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func composeStartBody(jobID string) string {
	return fmt.Sprintf(`{
		"jobId": "%s",
		"projectId": "project-e2e",
		"sceneId": "scene-e2e",
		"webhookUrl": "https://app.example.com/hooks/compose",
		"shots": [
			{
				"id": "shot-1",
				"order": 0,
				"videoUrl": "https://assets.example.com/shot-1.mp4",
				"durationMs": 4000
			},
			{
				"id": "shot-2",
				"order": 1,
				"videoUrl": "https://assets.example.com/shot-2.mp4",
				"durationMs": 6000,
				"fadeOutType": "black"
			}
		],
		"audioTracks": [
			{
				"id": "track-1",
				"sourceUrl": "https://assets.example.com/music.m4a",
				"startTimeMs": 1000,
				"durationMs": 8000,
				"volume": 0.6
			}
		]
	}`, jobID)
}

func TestComposeStartRequiresAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/compose/start", composeStartBody(uuid.New().String()), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestComposeStartAccepted(t *testing.T) {
	ta := setupApp(t)
	jobID := uuid.New().String()

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/compose/start", composeStartBody(jobID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	body := parseJSON(t, resp)
	if body["jobId"] != jobID {
		t.Errorf("jobId = %v, want %s", body["jobId"], jobID)
	}
	if body["status"] != "downloading" {
		t.Errorf("status = %v, want downloading", body["status"])
	}
}

func TestComposeStartValidation(t *testing.T) {
	ta := setupApp(t)

	// Missing webhookUrl
	body := `{
		"projectId": "project-e2e",
		"sceneId": "scene-e2e",
		"shots": [
			{"id": "shot-1", "videoUrl": "https://assets.example.com/s.mp4", "durationMs": 4000}
		]
	}`

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/compose/start", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	parsed := parseJSON(t, resp)
	errObj, ok := parsed["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing error envelope: %v", parsed)
	}
	if errObj["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %v, want VALIDATION_ERROR", errObj["code"])
	}
}

func TestComposeStatusAfterStart(t *testing.T) {
	ta := setupApp(t)
	jobID := uuid.New().String()

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/compose/start", composeStartBody(jobID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	readBody(t, resp)

	// No worker server is running, so the job stays at its initial state.
	statusResp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/compose/status/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, statusResp, http.StatusOK)

	body := parseJSON(t, statusResp)
	if body["jobId"] != jobID {
		t.Errorf("jobId = %v, want %s", body["jobId"], jobID)
	}
	if body["status"] != "downloading" {
		t.Errorf("status = %v, want downloading", body["status"])
	}
	if body["progress"] != float64(0) {
		t.Errorf("progress = %v, want 0", body["progress"])
	}
}

func TestComposeStatusUnknownJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/compose/status/"+uuid.New().String(), "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)

	body := parseJSON(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing error envelope: %v", body)
	}
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", errObj["code"])
	}
}
