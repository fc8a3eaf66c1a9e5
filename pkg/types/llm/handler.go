package llm

import (
	"fmt"
	"io"
	"strings"
)

// StreamHandler receives generated text incrementally.
type StreamHandler interface {
	HandleTextDelta(delta string)
	HandleDone()
}

// ConsoleStreamHandler echoes deltas to a writer as they arrive.
type ConsoleStreamHandler struct {
	Out io.Writer
}

// HandleTextDelta implements StreamHandler.
func (h *ConsoleStreamHandler) HandleTextDelta(delta string) {
	fmt.Fprint(h.Out, delta)
}

// HandleDone implements StreamHandler.
func (h *ConsoleStreamHandler) HandleDone() {
	fmt.Fprintln(h.Out)
}

// StringCollector accumulates deltas into a string.
type StringCollector struct {
	text strings.Builder
}

// HandleTextDelta implements StreamHandler.
func (h *StringCollector) HandleTextDelta(delta string) {
	h.text.WriteString(delta)
}

// HandleDone implements StreamHandler.
func (h *StringCollector) HandleDone() {}

// CollectedText returns everything received so far.
func (h *StringCollector) CollectedText() string {
	return h.text.String()
}
