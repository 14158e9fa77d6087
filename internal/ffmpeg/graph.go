// Package ffmpeg builds and executes the filter graphs that compose a
// scene video out of independently generated shot clips and overlaid
// audio tracks. Graph construction is pure computation over the request
// and probed durations; only Engine touches subprocesses.
package ffmpeg

import "strings"

// Filter is a single named filter with pre-rendered arguments.
type Filter struct {
	Name string
	Args string
}

func (f Filter) render() string {
	if f.Args == "" {
		return f.Name
	}
	return f.Name + "=" + f.Args
}

// Stage is one chain in the filter graph: zero or more input labels, a
// filter chain, one or more output labels. Source filters such as
// anullsrc have no inputs.
type Stage struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

// Graph is the complete processing-graph description handed to the
// engine: the input files in -i order, all filter stages, and the
// labels of the final video/audio streams.
type Graph struct {
	Inputs   []string
	Stages   []Stage
	VideoOut string
	AudioOut string
	// DurationMs is the expected output duration, used to scale the
	// engine's encode progress.
	DurationMs float64
}

// Render serializes the graph to ffmpeg filter_complex syntax.
func (g *Graph) Render() string {
	parts := make([]string, 0, len(g.Stages))
	for _, st := range g.Stages {
		var b strings.Builder
		for _, in := range st.Inputs {
			b.WriteString("[" + in + "]")
		}
		chain := make([]string, 0, len(st.Filters))
		for _, f := range st.Filters {
			chain = append(chain, f.render())
		}
		b.WriteString(strings.Join(chain, ","))
		for _, out := range st.Outputs {
			b.WriteString("[" + out + "]")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ";")
}
