package ffmpeg

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sceneforge/api/internal/model"
)

const (
	sampleRate    = 44100
	channelLayout = "stereo"
)

// ShotSource pairs a shot with its downloaded file and the decoded
// duration reported by ffprobe.
type ShotSource struct {
	Shot     model.Shot
	Path     string
	ActualMs float64
}

// TrackSource pairs a non-muted audio track with its downloaded file.
type TrackSource struct {
	Track model.AudioTrack
	Path  string
}

// EffectiveDurationMs reconciles the declared shot duration against the
// probed one. A trimmed shot is taken at its declared word: the caller
// already chose the window. An untrimmed shot is capped at the probed
// duration so an optimistic declared length cannot push a fade-out past
// the real end of the clip.
func EffectiveDurationMs(shot model.Shot, actualMs float64) float64 {
	stored := shot.StoredDurationMs()
	if shot.Trimmed() {
		return stored
	}
	if actualMs > 0 && actualMs < stored {
		return actualMs
	}
	return stored
}

// BuildGraph translates a composition request into the processing-graph
// description consumed by the engine. It is a pure function of its
// inputs: identical arguments yield an identical graph.
func BuildGraph(shots []ShotSource, tracks []TrackSource, masterVolume float64) (*Graph, error) {
	if len(shots) == 0 {
		return nil, fmt.Errorf("composition graph requires at least one shot")
	}

	ordered := make([]ShotSource, len(shots))
	copy(ordered, shots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Shot.Order < ordered[j].Shot.Order
	})

	g := &Graph{}
	for _, src := range ordered {
		g.Inputs = append(g.Inputs, src.Path)
	}
	for _, src := range tracks {
		g.Inputs = append(g.Inputs, src.Path)
	}

	var timelineMs float64
	concatIn := make([]string, 0, len(ordered)*2)

	for i, src := range ordered {
		shot := src.Shot
		stored := shot.StoredDurationMs()
		if stored <= 0 {
			return nil, fmt.Errorf("shot %s: trims leave no usable duration", shot.ID)
		}
		effective := EffectiveDurationMs(shot, src.ActualMs)
		timelineMs += effective

		vLabel := fmt.Sprintf("v%d", i)
		aLabel := fmt.Sprintf("a%d", i)
		g.Stages = append(g.Stages, videoStage(shot, i, effective, vLabel))
		g.Stages = append(g.Stages, audioStage(shot, i, effective, aLabel))
		concatIn = append(concatIn, vLabel, aLabel)
	}

	g.Stages = append(g.Stages, Stage{
		Inputs: concatIn,
		Filters: []Filter{{
			Name: "concat",
			Args: fmt.Sprintf("n=%d:v=1:a=1", len(ordered)),
		}},
		Outputs: []string{"vout", "acat"},
	})
	g.VideoOut = "vout"

	trackLabels := make([]string, 0, len(tracks))
	for k, src := range tracks {
		label := fmt.Sprintf("t%d", k)
		g.Stages = append(g.Stages, trackStage(src.Track, len(ordered)+k, label))
		trackLabels = append(trackLabels, label)

		if end := src.Track.StartTimeMs + src.Track.DurationMs; end > timelineMs {
			timelineMs = end
		}
	}

	audioOut := "acat"
	if len(trackLabels) > 0 {
		mixIn := append([]string{audioOut}, trackLabels...)
		g.Stages = append(g.Stages, Stage{
			Inputs: mixIn,
			Filters: []Filter{{
				Name: "amix",
				Args: fmt.Sprintf("inputs=%d:duration=longest:normalize=0", len(mixIn)),
			}},
			Outputs: []string{"amix"},
		})
		audioOut = "amix"
	}

	if masterVolume != 1.0 {
		g.Stages = append(g.Stages, Stage{
			Inputs:  []string{audioOut},
			Filters: []Filter{{Name: "volume", Args: num(masterVolume)}},
			Outputs: []string{"aout"},
		})
		audioOut = "aout"
	}
	g.AudioOut = audioOut
	g.DurationMs = timelineMs

	return g, nil
}

// videoStage builds the per-shot video chain: optional trim, timestamp
// reset, pixel-format normalization, optional fades.
func videoStage(shot model.Shot, inputIdx int, effectiveMs float64, out string) Stage {
	var chain []Filter
	if shot.Trimmed() {
		// Skipped entirely for untrimmed shots so material already
		// trimmed upstream is not re-trimmed.
		chain = append(chain, Filter{
			Name: "trim",
			Args: fmt.Sprintf("start=%s:end=%s", sec(shot.TrimStartMs), sec(shot.DurationMs-shot.TrimEndMs)),
		})
	}
	chain = append(chain,
		Filter{Name: "setpts", Args: "PTS-STARTPTS"},
		Filter{Name: "format", Args: "yuv420p"},
	)

	fadeDur := shot.FadeDuration()
	if fadeActive(shot.FadeInType) {
		chain = append(chain, Filter{
			Name: "fade",
			Args: fmt.Sprintf("t=in:st=0:d=%s:color=%s", sec(fadeDur), fadeColor(shot.FadeInType)),
		})
	}
	if fadeActive(shot.FadeOutType) {
		start := effectiveMs - fadeDur
		if start < 0 {
			start = 0
		}
		chain = append(chain, Filter{
			Name: "fade",
			Args: fmt.Sprintf("t=out:st=%s:d=%s:color=%s", sec(start), sec(fadeDur), fadeColor(shot.FadeOutType)),
		})
	}

	return Stage{
		Inputs:  []string{fmt.Sprintf("%d:v", inputIdx)},
		Filters: chain,
		Outputs: []string{out},
	}
}

// audioStage builds the matching per-shot audio branch. Muted shots get
// synthesized silence over the same window as the video branch.
func audioStage(shot model.Shot, inputIdx int, effectiveMs float64, out string) Stage {
	if shot.AudioMuted {
		return Stage{
			Filters: []Filter{
				{Name: "anullsrc", Args: fmt.Sprintf("channel_layout=%s:sample_rate=%d", channelLayout, sampleRate)},
				{Name: "atrim", Args: "duration=" + sec(effectiveMs)},
			},
			Outputs: []string{out},
		}
	}

	var chain []Filter
	if shot.Trimmed() {
		chain = append(chain, Filter{
			Name: "atrim",
			Args: fmt.Sprintf("start=%s:end=%s", sec(shot.TrimStartMs), sec(shot.DurationMs-shot.TrimEndMs)),
		})
	}
	chain = append(chain,
		Filter{Name: "asetpts", Args: "PTS-STARTPTS"},
		Filter{Name: "aresample", Args: strconv.Itoa(sampleRate)},
	)

	return Stage{
		Inputs:  []string{fmt.Sprintf("%d:a", inputIdx)},
		Filters: chain,
		Outputs: []string{out},
	}
}

// trackStage positions one overlay audio track on the assembled
// timeline: extract the window, reset timestamps, delay onto the
// timeline, scale by volume. The delay is formatted from the unrounded
// millisecond value so many tracks cannot accumulate drift.
func trackStage(track model.AudioTrack, inputIdx int, out string) Stage {
	delay := num(track.StartTimeMs)
	return Stage{
		Inputs: []string{fmt.Sprintf("%d:a", inputIdx)},
		Filters: []Filter{
			{Name: "atrim", Args: fmt.Sprintf("start=%s:end=%s", sec(track.TrimStartMs), sec(track.TrimStartMs+track.DurationMs))},
			{Name: "asetpts", Args: "PTS-STARTPTS"},
			{Name: "adelay", Args: delay + "|" + delay},
			{Name: "volume", Args: num(track.Volume)},
		},
		Outputs: []string{out},
	}
}

func fadeActive(t model.FadeType) bool {
	return t != "" && t != model.FadeNone
}

func fadeColor(t model.FadeType) string {
	if t == model.FadeWhite {
		return "white"
	}
	return "black"
}

// sec formats a millisecond value as seconds for filter arguments.
func sec(ms float64) string {
	return num(ms / 1000.0)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
