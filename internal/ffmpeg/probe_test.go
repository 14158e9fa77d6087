package ffmpeg

import "testing"

func TestParseProbeDurationMs(t *testing.T) {
	output := []byte(`{
		"format": {
			"filename": "clip.mp4",
			"duration": "4.266667",
			"size": "1048576"
		}
	}`)

	got, err := parseProbeDurationMs(output)
	if err != nil {
		t.Fatalf("parseProbeDurationMs failed: %v", err)
	}
	if got != 4266.667 {
		t.Errorf("parseProbeDurationMs = %v, want 4266.667", got)
	}
}

func TestParseProbeDurationMs_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"not json", "ffprobe: no such file"},
		{"missing duration", `{"format": {"filename": "clip.mp4"}}`},
		{"non-numeric duration", `{"format": {"duration": "N/A"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseProbeDurationMs([]byte(tt.output)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
