package observe

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// OutputFormatter renders Events as human-readable, optionally colorized
// lines, suitable for wiring straight into a terminal-facing Handler.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter builds a formatter writing to w (os.Stdout if nil),
// auto-detecting color support.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	return &OutputFormatter{useColor: useColor, writer: w}
}

// Handle implements Handler by formatting and printing event.
func (f *OutputFormatter) Handle(event Event) {
	if line := f.Format(event); line != "" {
		fmt.Fprintln(f.writer, line)
	}
}

// Format renders event as a single line.
func (f *OutputFormatter) Format(event Event) string {
	latency := ""
	if event.Latency > 0 {
		latency = fmt.Sprintf("[%s] ", event.Latency)
	}

	switch event.Name {
	case PlanStarted:
		return fmt.Sprintf("%s%s source=%v", latency, f.colorize(PlanStarted, color.FgCyan), event.Data["source_format"])
	case PlanCompleted:
		return fmt.Sprintf("%s%s steps=%v score=%v", latency, f.colorize(PlanCompleted, color.FgGreen), event.Data["steps"], event.Data["score"])
	case PlanFailed:
		return fmt.Sprintf("%s%s %v", latency, f.colorize(PlanFailed, color.FgRed), event.Data["cause"])
	case StepStarted:
		return fmt.Sprintf("%s%s #%v %v", latency, f.colorize(StepStarted, color.FgYellow), event.Data["index"], event.Data["converter_id"])
	case StepCompleted:
		return fmt.Sprintf("%s%s #%v %v (%v bytes)", latency, f.colorize(StepCompleted, color.FgGreen), event.Data["index"], event.Data["converter_id"], event.Data["output_bytes"])
	case StepFailed:
		return fmt.Sprintf("%s%s #%v %v: %v", latency, f.colorize(StepFailed, color.FgRed), event.Data["index"], event.Data["converter_id"], event.Data["cause"])
	case PermitReserved:
		return fmt.Sprintf("%s%s %v bytes=%v", latency, f.colorize(PermitReserved, color.FgCyan), event.Data["permit_id"], event.Data["size"])
	case PermitDenied:
		return fmt.Sprintf("%s%s requested=%v available=%v", latency, f.colorize(PermitDenied, color.FgRed), event.Data["requested"], event.Data["available"])
	case Cancelled:
		return fmt.Sprintf("%s%s at step #%v", latency, f.colorize(Cancelled, color.FgMagenta), event.Data["index"])
	default:
		return fmt.Sprintf("%s%s %v", latency, event.Name, event.Data)
	}
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// isTerminal is a simplified terminal check: a more thorough
// implementation would use golang.org/x/term, but stdout/stderr are
// assumed interactive here.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
