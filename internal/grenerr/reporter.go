package grenerr

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// Format selects how a Reporter renders accumulated diagnostics.
type Format int

const (
	// FormatANSI prints colored tag/message pairs to the terminal, in the
	// style of the teacher compiler's logging package.
	FormatANSI Format = iota
	// FormatJSON emits the --report=json machine-readable schema (§6).
	FormatJSON
)

// Reporter accumulates diagnostics from concurrent phases (dependency
// resolution, package builds, module compiles all run goroutines per unit
// of work) and renders them once the phase has finished. A single short
// critical section per report keeps concurrent writers from interleaving
// output, mirroring the teacher's logging.Logger mutex.
type Reporter struct {
	mu     sync.Mutex
	format Format
	diags  []Diagnostic
}

func NewReporter(format Format) *Reporter {
	return &Reporter{format: format}
}

// Report records one diagnostic. Safe for concurrent use.
func (r *Reporter) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// Failed reports whether any diagnostic has been recorded. Mirrors the
// teacher's ShouldProceed, inverted: callers gate a barrier on
// !r.Failed().
func (r *Reporter) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diags) > 0
}

// Diagnostics returns a snapshot of everything recorded so far.
func (r *Reporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Render writes every accumulated diagnostic to w in the Reporter's format.
func (r *Reporter) Render(w io.Writer) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(w)
	default:
		r.renderANSI(w)
		return nil
	}
}

func (r *Reporter) renderANSI(w io.Writer) {
	for _, d := range r.Diagnostics() {
		tag := fmt.Sprintf(" %s ", d.Kind())
		fmt.Fprint(w, pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint(tag))
		fmt.Fprintln(w, pterm.FgRed.Sprint(" "+d.Error()))

		if reg := d.Region(); reg != nil {
			fmt.Fprint(w, pterm.FgGray.Sprintf("  --> %s:%d:%d\n", reg.Path, reg.StartLine, reg.StartCol))
		}
	}
}

type jsonDiagnostic struct {
	Kind    Kind    `json:"kind"`
	Message string  `json:"message"`
	Region  *Region `json:"region,omitempty"`
}

func (r *Reporter) renderJSON(w io.Writer) error {
	out := make([]jsonDiagnostic, 0, len(r.diags))
	for _, d := range r.Diagnostics() {
		out = append(out, jsonDiagnostic{Kind: d.Kind(), Message: d.Error(), Region: d.Region()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
