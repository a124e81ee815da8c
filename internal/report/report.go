// Package report handles denied invocations: rendering the
// user-visible placeholder and recording denial history so an operator
// can review blocked digests and promote them into the trust list.
package report

import (
	"fmt"
	"io"

	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/script"
)

// Reporter receives one call per denied invocation. Implementations
// must not fail into the gate: reporting problems are logged locally.
type Reporter interface {
	ReportDenied(loc script.Location, sum digest.Entry, integration string)
}

// Placeholder is the text shown in place of blocked output. It names
// the full digest so the operator can add it to the trust list.
func Placeholder(sum digest.Entry, integration string) string {
	return fmt.Sprintf("⛔ blocked %s script: content hash %s is not in the trust list.\n"+
		"Trust it with: fencegate trust add %s", integration, sum, sum)
}

// Renderer writes placeholders to a stream. In the host environment
// this stream is the rendered output slot of the blocked fragment.
type Renderer struct {
	w io.Writer
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// ReportDenied implements Reporter.
func (r *Renderer) ReportDenied(loc script.Location, sum digest.Entry, integration string) {
	fmt.Fprintf(r.w, "%s:%d\n%s\n", loc.Note, loc.Line, Placeholder(sum, integration))
}

// Fanout dispatches one denial to several reporters in order.
type Fanout []Reporter

// ReportDenied implements Reporter.
func (f Fanout) ReportDenied(loc script.Location, sum digest.Entry, integration string) {
	for _, r := range f {
		r.ReportDenied(loc, sum, integration)
	}
}
