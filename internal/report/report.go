// Package report is the structured result of one recipe run: overall
// status, per-step summaries, and the final context snapshot. A report
// exists only for runs that passed graph building; build-time errors
// abort before any report is produced, which is how callers distinguish
// "nothing ran" from "ran with failures".
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/dag"
)

// Status is the overall outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepReport summarizes one execution node.
type StepReport struct {
	Name       string
	Target     string
	Status     string
	Attempts   int
	Error      string
	SkipReason string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the step ran, or zero if it never started.
func (s *StepReport) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// RunReport is the caller-facing result of one run.
type RunReport struct {
	Recipe     string
	Version    string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepReport
	Snapshot   map[string]any
}

// Failed reports whether the run ended in failure.
func (r *RunReport) Failed() bool {
	return r.Status == StatusFailed
}

// Step returns the report for a named step, or nil.
func (r *RunReport) Step(name string) *StepReport {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// FromGraph assembles the run report after a scheduler run finishes.
// Step order follows the declared index order (normal steps first, then
// on_error steps), never the concurrent completion order.
func FromGraph(recipeName, version string, status Status, started, finished time.Time, g *dag.Graph, store *ctxstore.Store) *RunReport {
	rep := &RunReport{
		Recipe:     recipeName,
		Version:    version,
		Status:     status,
		StartedAt:  started,
		FinishedAt: finished,
		Snapshot:   store.Snapshot(),
	}
	for _, node := range g.Ordered {
		rep.Steps = append(rep.Steps, stepReport(node))
	}
	for _, node := range g.OnError {
		rep.Steps = append(rep.Steps, stepReport(node))
	}
	return rep
}

func stepReport(node *dag.Node) StepReport {
	target := node.Spec.Uses
	if target == "" {
		target = "recipe:" + node.Spec.Recipe
	}
	sr := StepReport{
		Name:       node.Name(),
		Target:     target,
		Status:     node.Status().String(),
		Attempts:   node.Attempts,
		SkipReason: node.SkipReason,
		StartedAt:  node.StartedAt,
		FinishedAt: node.FinishedAt,
	}
	if node.Err != nil {
		sr.Error = node.Err.Error()
	}
	return sr
}

// Render writes a human-readable summary.
func (r *RunReport) Render(w io.Writer) {
	fmt.Fprintf(w, "Recipe %s", r.Recipe)
	if r.Version != "" {
		fmt.Fprintf(w, " (version %s)", r.Version)
	}
	fmt.Fprintf(w, ": %s in %s\n\n", r.Status, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tTARGET\tSTATUS\tATTEMPTS\tDURATION\tDETAIL")
	for i := range r.Steps {
		s := &r.Steps[i]
		detail := s.Error
		if detail == "" {
			detail = s.SkipReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.Name, s.Target, s.Status, s.Attempts, s.Duration().Round(time.Millisecond), detail)
	}
	tw.Flush()
}
