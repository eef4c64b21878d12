package tracefmt

import "fmt"

// Stepper is a Target that can also advance the target by one instruction,
// the additional capability the trace writer needs beyond what a probe
// requires (internal/gdbremote.Client satisfies this).
type Stepper interface {
	Target
	SingleStep() error
}

// WriterConfig controls capture length and decimation.
type WriterConfig struct {
	// MaxInsns bounds the number of single-steps taken before the writer
	// stops unconditionally.
	MaxInsns uint64
	// Decimation: only every Nth step emits a tracepoint; 1 means every
	// step. Probes sample (and advance their diff base) only at emitted
	// tracepoints, so every delta is relative to the previous emitted
	// tracepoint - exactly the state a reader reconstructs.
	Decimation uint64
}

// Writer drives a target through single-steps and accumulates a File.
type Writer struct {
	target Stepper
	probes []Probe
	config WriterConfig
	file   File

	// OnTracepoint, if set, is called with every tracepoint as it is
	// appended and the register snapshot at that point - the hook
	// cmd/thumb2trace uses to drive the live WebSocket feed.
	OnTracepoint func(Tracepoint, map[string]uint32)
}

// NewWriter builds a writer over the given probes, in the order that
// becomes the trace file's component index.
func NewWriter(target Stepper, probes []Probe, meta Meta, config WriterConfig) *Writer {
	if config.Decimation == 0 {
		config.Decimation = 1
	}
	descriptors := make([]Descriptor, len(probes))
	for i, p := range probes {
		descriptors[i] = p.Descriptor()
	}
	meta.Components = descriptors
	meta.Version = FileVersion

	return &Writer{target: target, probes: probes, config: config, file: File{Meta: meta}}
}

// sampleAll runs every probe in component order and reports whether any
// probe emitted a non-unchanged delta.
func (w *Writer) sampleAll() ([]Delta, bool, error) {
	state := make([]Delta, len(w.probes))
	changed := false
	for i, p := range w.probes {
		d, err := p.Sample(w.target)
		if err != nil {
			return nil, false, err
		}
		state[i] = d
		if !d.Unchanged {
			changed = true
		}
	}
	return state, changed, nil
}

// Capture steps the target until a fixed point (the program counter does
// not move, i.e. a self-branch) or the instruction budget runs out,
// emitting a tracepoint every Decimation steps, and finishes with a
// forced-full tracepoint so the trace always ends in completely
// materialisable state. Tracepoint counters are strictly increasing: if
// the loop already emitted at the final instruction count, the forced-full
// sample replaces that entry rather than duplicating its counter.
func (w *Writer) Capture() (*File, error) {
	var executed uint64

	initial, _, err := w.sampleAll()
	if err != nil {
		return nil, fmt.Errorf("tracefmt: initial sample: %w", err)
	}
	initialTP := Tracepoint{ExecutedInsns: 0, State: initial}
	w.file.Trace = append(w.file.Trace, initialTP)
	w.notify(initialTP)

	sinceEmit := uint64(0)
	for w.config.MaxInsns == 0 || executed < w.config.MaxInsns {
		regsBefore, err := w.target.GetRegs()
		if err != nil {
			return nil, fmt.Errorf("tracefmt: read pc before step: %w", err)
		}
		pcBefore := regsBefore["r15"]

		if err := w.target.SingleStep(); err != nil {
			return nil, fmt.Errorf("tracefmt: single-step: %w", err)
		}
		executed++
		sinceEmit++

		regsAfter, err := w.target.GetRegs()
		if err != nil {
			return nil, fmt.Errorf("tracefmt: read pc after step: %w", err)
		}
		if regsAfter["r15"] == pcBefore {
			// Fixed point; the forced-full final tracepoint below covers
			// this instruction count.
			break
		}

		if sinceEmit >= w.config.Decimation {
			state, _, err := w.sampleAll()
			if err != nil {
				return nil, fmt.Errorf("tracefmt: sample at insn %d: %w", executed, err)
			}
			tp := Tracepoint{ExecutedInsns: executed, State: state}
			w.file.Trace = append(w.file.Trace, tp)
			w.notify(tp)
			sinceEmit = 0
		}
	}

	for _, p := range w.probes {
		p.Reset()
	}
	final, _, err := w.sampleAll()
	if err != nil {
		return nil, fmt.Errorf("tracefmt: final forced sample: %w", err)
	}
	finalTP := Tracepoint{ExecutedInsns: executed, State: final}
	if n := len(w.file.Trace); w.file.Trace[n-1].ExecutedInsns == executed {
		w.file.Trace[n-1] = finalTP
	} else {
		w.file.Trace = append(w.file.Trace, finalTP)
		w.notify(finalTP)
	}

	return &w.file, nil
}

// notify invokes OnTracepoint, if set, re-reading the live register file
// for the snapshot it passes along.
func (w *Writer) notify(tp Tracepoint) {
	if w.OnTracepoint == nil {
		return
	}
	regs, err := w.target.GetRegs()
	if err != nil {
		return
	}
	w.OnTracepoint(tp, regs)
}
