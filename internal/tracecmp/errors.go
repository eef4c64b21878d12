package tracecmp

import "fmt"

// IncompatibleTraces reports that the two traces' component descriptor
// sequences (or ROM checksums) don't structurally match.
type IncompatibleTraces struct {
	Reason string
}

func (e *IncompatibleTraces) Error() string {
	return fmt.Sprintf("tracecmp: incompatible traces: %s", e.Reason)
}

// Divergence reports the first tracepoint where the two traces disagree.
// The caller is expected to treat this as fatal with exit code 1.
type Divergence struct {
	ExecutedInsns uint64
	Report        string
}

func (e *Divergence) Error() string {
	return fmt.Sprintf("tracecmp: traces diverge at executed_insns=%d", e.ExecutedInsns)
}
