package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Reporter prints diagnostics as they arrive and keeps per-level counts.
// Output is coloured only when the stream is a terminal.
type Reporter struct {
	w      io.Writer
	styles map[DiagnosticLevel]*color.Color
	note   *color.Color

	diagnostics []*Diagnostic
	counts      map[DiagnosticLevel]int
}

// NewReporter returns a reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	r := &Reporter{
		w: w,
		styles: map[DiagnosticLevel]*color.Color{
			DiagnosticError:   color.New(color.FgRed, color.Bold),
			DiagnosticWarning: color.New(color.FgYellow, color.Bold),
			DiagnosticInfo:    color.New(color.FgCyan),
			DiagnosticHint:    color.New(color.FgGreen),
		},
		note:   color.New(color.Faint),
		counts: make(map[DiagnosticLevel]int),
	}
	r.SetColor(IsTerminal(w))

	return r
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetColor forces colouring on or off.
func (r *Reporter) SetColor(enabled bool) {
	all := append([]*color.Color{r.note}, r.styleList()...)
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func (r *Reporter) styleList() []*color.Color {
	out := make([]*color.Color, 0, len(r.styles))
	for _, c := range r.styles {
		out = append(out, c)
	}
	return out
}

// Report prints d and records it.
func (r *Reporter) Report(d *Diagnostic) {
	if d == nil {
		return
	}
	r.diagnostics = append(r.diagnostics, d)
	r.counts[d.Level]++

	_, _ = io.WriteString(r.w, r.Format(d))
}

// ReportError reports err as one diagnostic per joined error.
func (r *Reporter) ReportError(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			r.ReportError(e)
		}
		return
	}
	r.Report(FromError(err))
}

// Format renders d as "level[CODE]: message (at span)" plus related notes.
func (r *Reporter) Format(d *Diagnostic) string {
	var b strings.Builder

	style, ok := r.styles[d.Level]
	if !ok {
		style = r.styles[DiagnosticError]
	}
	head := d.Level.String()
	if d.Code != "" {
		head = fmt.Sprintf("%s[%s]", head, d.Code)
	}
	b.WriteString(style.Sprint(head))
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Span.IsValid() {
		b.WriteString(r.note.Sprintf(" (at %s)", d.Span))
	}
	b.WriteByte('\n')

	for _, rel := range d.RelatedInfo {
		b.WriteString(r.note.Sprintf("  note: %s", rel.Message))
		if rel.Span.IsValid() {
			b.WriteString(r.note.Sprintf(" (at %s)", rel.Span))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// Diagnostics returns everything reported so far, in report order.
func (r *Reporter) Diagnostics() []*Diagnostic { return r.diagnostics }

// ErrorCount returns the number of error-level diagnostics.
func (r *Reporter) ErrorCount() int { return r.counts[DiagnosticError] }

// WarningCount returns the number of warnings.
func (r *Reporter) WarningCount() int { return r.counts[DiagnosticWarning] }

// HasErrors returns true if there are any errors.
func (r *Reporter) HasErrors() bool { return r.ErrorCount() > 0 }

// Summary returns a one-line count, or "" when nothing was reported.
func (r *Reporter) Summary() string {
	var parts []string
	if n := r.ErrorCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", n))
	}
	if n := r.WarningCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", n))
	}
	if len(parts) == 0 {
		return ""
	}
	return "found " + strings.Join(parts, ", ")
}

// Reset forgets every recorded diagnostic.
func (r *Reporter) Reset() {
	r.diagnostics = nil
	r.counts = make(map[DiagnosticLevel]int)
}
