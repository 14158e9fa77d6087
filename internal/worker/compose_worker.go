package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sceneforge/api/internal/client"
	"github.com/sceneforge/api/internal/ffmpeg"
	"github.com/sceneforge/api/internal/ledger"
	"github.com/sceneforge/api/internal/model"
	"github.com/sceneforge/api/internal/websocket"
)

// Progress bands per pipeline stage. Downloads map onto 0-20, the
// encode onto 20-90, thumbnail and uploads fill the rest, completion
// lands at exactly 100.
const (
	progressDownloadEnd = 20
	progressEncodeEnd   = 90
	progressThumbnail   = 92
	progressUploadVideo = 96
)

// MediaEngine is the transcoding surface the orchestrator drives.
type MediaEngine interface {
	ProbeDurationMs(ctx context.Context, path string) (float64, error)
	Compose(ctx context.Context, g *ffmpeg.Graph, outputPath string, onProgress func(percent float64)) error
	ExtractThumbnail(ctx context.Context, videoPath string, thumbPath string) error
}

// ComposeWorker orchestrates composition jobs: fetch sources, build
// the filter graph, transcode, extract a thumbnail, publish artifacts,
// and deliver exactly one terminal webhook.
type ComposeWorker struct {
	ledger     ledger.Ledger
	fetcher    client.Fetcher
	storage    client.StorageClient
	engine     MediaEngine
	webhooks   *client.WebhookClient
	hub        *websocket.Hub
	scratchDir string
}

// NewComposeWorker creates a composition orchestrator.
func NewComposeWorker(
	jobLedger ledger.Ledger,
	fetcher client.Fetcher,
	storage client.StorageClient,
	engine MediaEngine,
	webhooks *client.WebhookClient,
	hub *websocket.Hub,
	scratchDir string,
) *ComposeWorker {
	return &ComposeWorker{
		ledger:     jobLedger,
		fetcher:    fetcher,
		storage:    storage,
		engine:     engine,
		webhooks:   webhooks,
		hub:        hub,
		scratchDir: scratchDir,
	}
}

// ProcessTask handles a queued composition task.
func (w *ComposeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var req model.ComposeStartRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("failed to unmarshal compose payload: %w", err)
	}

	log.Printf("Starting composition job: %s", req.JobID)
	return w.ProcessComposition(ctx, &req)
}

// ProcessComposition drives one request to completion. Every stage
// failure is caught here once: the job is marked failed, a failure
// webhook is sent, and no error escapes unreported.
func (w *ComposeWorker) ProcessComposition(ctx context.Context, req *model.ComposeStartRequest) error {
	if _, err := w.ledger.Create(ctx, req.JobID); err != nil {
		log.Printf("Failed to create ledger entry for job %s: %v", req.JobID, err)
	}

	result, err := w.compose(ctx, req)
	if err != nil {
		log.Printf("Composition job %s failed: %v", req.JobID, err)
		if lerr := w.ledger.Update(ctx, req.JobID, ledger.Failure(err.Error())); lerr != nil {
			log.Printf("Failed to mark job %s as failed: %v", req.JobID, lerr)
		}
		if w.hub != nil {
			w.hub.BroadcastError(req.JobID, "COMPOSE_FAILED", err.Error())
		}
		w.notify(ctx, req.WebhookURL, &model.CompositionResult{
			JobID:  req.JobID,
			Status: model.JobStatusFailed,
			Error:  err.Error(),
		})
		return err
	}

	if lerr := w.ledger.Update(ctx, req.JobID, ledger.Progress(model.JobStatusCompleted, 100, "Completed")); lerr != nil {
		log.Printf("Failed to mark job %s as completed: %v", req.JobID, lerr)
	}
	if w.hub != nil {
		w.hub.BroadcastComplete(req.JobID, result)
	}
	w.notify(ctx, req.WebhookURL, result)

	log.Printf("Composition job %s completed", req.JobID)
	return nil
}

// compose runs the pipeline stages in order. The scratch directory is
// deleted on every exit path; cleanup failures are logged, never
// escalated, so they cannot mask the job's real outcome.
func (w *ComposeWorker) compose(ctx context.Context, req *model.ComposeStartRequest) (*model.CompositionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if w.storage == nil {
		// Rejected before any I/O: without storage the artifacts can
		// never be published, so fail through the normal path instead
		// of wasting the encode.
		return nil, errors.New("artifact storage is not configured")
	}

	workDir, err := os.MkdirTemp(w.scratchDir, "compose-"+req.JobID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Printf("Scratch cleanup failed for job %s: %v", req.JobID, err)
		}
	}()

	w.progress(ctx, req.JobID, model.JobStatusDownloading, 0, "Downloading source assets...")
	shotPaths, trackPaths, err := w.download(ctx, req, workDir)
	if err != nil {
		return nil, err
	}

	w.progress(ctx, req.JobID, model.JobStatusProcessing, progressDownloadEnd, "Building filter graph...")
	graph, err := w.buildGraph(ctx, req, shotPaths, trackPaths)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(workDir, "composite.mp4")
	err = w.engine.Compose(ctx, graph, outputPath, func(percent float64) {
		mapped := progressDownloadEnd + int(percent*(progressEncodeEnd-progressDownloadEnd)/100)
		w.progress(ctx, req.JobID, model.JobStatusProcessing, mapped, "Rendering scene video...")
	})
	if err != nil {
		return nil, err
	}

	w.progress(ctx, req.JobID, model.JobStatusProcessing, progressThumbnail, "Extracting thumbnail...")
	thumbPath := filepath.Join(workDir, "thumbnail.jpg")
	if err := w.engine.ExtractThumbnail(ctx, outputPath, thumbPath); err != nil {
		// Fatal: the success webhook contract always carries a thumbnail URL.
		return nil, err
	}

	w.progress(ctx, req.JobID, model.JobStatusUploading, progressThumbnail, "Uploading scene video...")
	ts := time.Now().Unix()
	videoKey := artifactKey(req.ProjectID, req.SceneID, ts, "mp4")
	videoURL, err := w.storage.UploadFile(ctx, videoKey, outputPath, "video/mp4")
	if err != nil {
		return nil, err
	}

	w.progress(ctx, req.JobID, model.JobStatusUploading, progressUploadVideo, "Uploading thumbnail...")
	thumbKey := artifactKey(req.ProjectID, req.SceneID, ts, "jpg")
	thumbURL, err := w.storage.UploadFile(ctx, thumbKey, thumbPath, "image/jpeg")
	if err != nil {
		return nil, err
	}

	durationMs, err := w.engine.ProbeDurationMs(ctx, outputPath)
	if err != nil {
		return nil, err
	}

	return &model.CompositionResult{
		JobID:        req.JobID,
		Status:       model.JobStatusCompleted,
		VideoURL:     videoURL,
		ThumbnailURL: thumbURL,
		DurationMs:   durationMs,
	}, nil
}

// download fans out every shot video and every non-muted audio track,
// mapping completion linearly onto the 0-20 band.
func (w *ComposeWorker) download(ctx context.Context, req *model.ComposeStartRequest, workDir string) (map[string]string, map[string]string, error) {
	shotPaths := make(map[string]string, len(req.Shots))
	trackPaths := make(map[string]string)

	type fetchItem struct {
		url  string
		dest string
	}
	items := make([]fetchItem, 0, len(req.Shots)+len(req.AudioTracks))

	for i, shot := range req.Shots {
		dest := filepath.Join(workDir, fmt.Sprintf("shot-%03d%s", i, fileExt(shot.VideoURL, ".mp4")))
		shotPaths[shot.ID] = dest
		items = append(items, fetchItem{url: shot.VideoURL, dest: dest})
	}
	for i, track := range req.AudioTracks {
		if track.Muted {
			continue
		}
		dest := filepath.Join(workDir, fmt.Sprintf("track-%03d%s", i, fileExt(track.SourceURL, ".m4a")))
		trackPaths[track.ID] = dest
		items = append(items, fetchItem{url: track.SourceURL, dest: dest})
	}

	var mu sync.Mutex
	done := 0
	total := len(items)

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := w.fetcher.Fetch(gctx, item.url, item.dest); err != nil {
				return err
			}
			mu.Lock()
			done++
			pct := done * progressDownloadEnd / total
			w.progress(gctx, req.JobID, model.JobStatusDownloading, pct, "Downloading source assets...")
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return shotPaths, trackPaths, nil
}

// buildGraph probes every downloaded shot and hands the declared and
// actual durations to the pure graph builder.
func (w *ComposeWorker) buildGraph(ctx context.Context, req *model.ComposeStartRequest, shotPaths, trackPaths map[string]string) (*ffmpeg.Graph, error) {
	shots := make([]ffmpeg.ShotSource, 0, len(req.Shots))
	for _, shot := range req.Shots {
		p := shotPaths[shot.ID]
		actual, err := w.engine.ProbeDurationMs(ctx, p)
		if err != nil {
			return nil, err
		}
		shots = append(shots, ffmpeg.ShotSource{Shot: shot, Path: p, ActualMs: actual})
	}

	tracks := make([]ffmpeg.TrackSource, 0, len(trackPaths))
	for _, track := range req.AudioTracks {
		if track.Muted {
			continue
		}
		tracks = append(tracks, ffmpeg.TrackSource{Track: track, Path: trackPaths[track.ID]})
	}

	return ffmpeg.BuildGraph(shots, tracks, req.MasterVolumeOrDefault())
}

func (w *ComposeWorker) progress(ctx context.Context, jobID string, status model.JobStatus, pct int, stage string) {
	if err := w.ledger.Update(ctx, jobID, ledger.Progress(status, pct, stage)); err != nil {
		log.Printf("Failed to update progress for job %s: %v", jobID, err)
	}
	if w.hub != nil {
		w.hub.BroadcastProgress(jobID, pct, status, stage)
	}
}

func (w *ComposeWorker) notify(ctx context.Context, webhookURL string, result *model.CompositionResult) {
	if err := w.webhooks.Notify(ctx, webhookURL, result); err != nil {
		log.Printf("Webhook delivery failed for job %s: %v", result.JobID, err)
	}
}

// validateRequest rejects structurally invalid requests before any I/O.
func validateRequest(req *model.ComposeStartRequest) error {
	if len(req.Shots) == 0 {
		return errors.New("composition requires at least one shot")
	}
	for _, shot := range req.Shots {
		if shot.StoredDurationMs() <= 0 {
			return fmt.Errorf("shot %s: trims leave no usable duration", shot.ID)
		}
	}
	return nil
}

func artifactKey(projectID, sceneID string, ts int64, ext string) string {
	return fmt.Sprintf("projects/%s/scenes/%s/composite-%d.%s", projectID, sceneID, ts, ext)
}

func fileExt(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return fallback
}
