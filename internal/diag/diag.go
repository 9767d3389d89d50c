// Package diag provides the diagnostic sink that collects user-model errors
// during translation.
//
// Diagnostics are not logs. They are the translation's output: an ordered,
// append-only list of problems found in the document. Resolution never stops
// at the first diagnostic; callers inspect the full list once translation
// completes.
package diag

import (
	"fmt"
	"strings"
)

// Position is a zero-based line/character location in a source document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span [Begin, End) in a source document.
type Range struct {
	Begin Position `json:"begin"`
	End   Position `json:"end"`
}

// String renders the range as 1-based "line:col".
func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Begin.Line+1, r.Begin.Character+1)
}

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one logged problem.
type Diagnostic struct {
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	SourceURL string   `json:"source_url"`
	Range     *Range   `json:"range,omitempty"`
	Hint      string   `json:"hint,omitempty"` // e.g. a "did you mean" suggestion
}

// String renders the diagnostic as "url:line:col: severity: message".
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.SourceURL)
	if d.Range != nil {
		b.WriteString(":" + d.Range.String())
	}
	fmt.Fprintf(&b, ": %s: %s", d.Severity, d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&b, " (%s)", d.Hint)
	}
	return b.String()
}

// Sink receives diagnostics in the order they are produced.
type Sink interface {
	Log(d Diagnostic)
}

// List is an append-only Sink that keeps every diagnostic in order.
// It is owned by a single translation and is not safe for concurrent use.
type List struct {
	items []Diagnostic
}

// NewList creates an empty diagnostic list.
func NewList() *List {
	return &List{}
}

// Log appends a diagnostic.
func (l *List) Log(d Diagnostic) {
	if d.Severity == "" {
		d.Severity = SeverityError
	}
	l.items = append(l.items, d)
}

// Items returns a copy of all diagnostics in log order.
// Returns an empty slice (not nil) when nothing was logged.
func (l *List) Items() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of diagnostics logged.
func (l *List) Len() int {
	return len(l.items)
}

// Errors returns only error-severity diagnostics.
func (l *List) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range l.items {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Messages returns the message text of every diagnostic, in order.
func (l *List) Messages() []string {
	out := make([]string, len(l.items))
	for i, d := range l.items {
		out[i] = d.Message
	}
	return out
}

// String renders one diagnostic per line.
func (l *List) String() string {
	lines := make([]string, len(l.items))
	for i, d := range l.items {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
