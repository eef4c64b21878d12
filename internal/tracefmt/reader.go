package tracefmt

import "fmt"

// ComponentState is one component's materialised value at a tracepoint:
// exactly one of Regs or Bytes is meaningful, depending on the
// component's descriptor.
type ComponentState struct {
	Regs  map[string]uint32
	Bytes []byte
}

// Materialized is one fully reconstructed tracepoint.
type Materialized struct {
	ExecutedInsns uint64
	State         []ComponentState
}

// Reader replays a File's tracepoints into fully materialised state.
// Construction does no I/O beyond what the caller already did to load
// the File; each component's materialiser is independent of the others,
// so materialisation order only matters within a component.
type Reader struct {
	file  *File
	state []ComponentState
}

// NewReader builds a reader over an already-parsed trace file.
func NewReader(file *File) *Reader {
	state := make([]ComponentState, len(file.Meta.Components))
	for i, d := range file.Meta.Components {
		if isMemoryComponent(d) {
			state[i] = ComponentState{}
		} else {
			state[i] = ComponentState{Regs: zeroRegisters()}
		}
	}
	return &Reader{file: file, state: state}
}

func isMemoryComponent(d Descriptor) bool {
	return d.Address != nil
}

func zeroRegisters() map[string]uint32 {
	m := make(map[string]uint32, len(RegisterOrder))
	for _, name := range RegisterOrder {
		m[name] = 0
	}
	return m
}

// Len returns the number of tracepoints in the file.
func (r *Reader) Len() int { return len(r.file.Trace) }

// Meta returns the file's metadata.
func (r *Reader) Meta() Meta { return r.file.Meta }

// At materialises the tracepoint at the given index. Indexes must be
// visited in increasing order exactly once each, since memory and
// register materialisation is a running patch application, not random
// access.
func (r *Reader) At(index int) (Materialized, error) {
	if index < 0 || index >= len(r.file.Trace) {
		return Materialized{}, fmt.Errorf("tracefmt: tracepoint index %d out of range [0,%d)", index, len(r.file.Trace))
	}
	tp := r.file.Trace[index]
	if len(tp.State) != len(r.state) {
		return Materialized{}, fmt.Errorf("tracefmt: tracepoint %d has %d components, expected %d", index, len(tp.State), len(r.state))
	}

	out := make([]ComponentState, len(r.state))
	for i, delta := range tp.State {
		if err := r.applyDelta(i, delta); err != nil {
			return Materialized{}, fmt.Errorf("tracefmt: tracepoint %d component %d: %w", index, i, err)
		}
		// copy so callers can retain it past the next At() call
		if r.state[i].Regs != nil {
			cp := make(map[string]uint32, len(r.state[i].Regs))
			for k, v := range r.state[i].Regs {
				cp[k] = v
			}
			out[i] = ComponentState{Regs: cp}
		} else {
			cp := make([]byte, len(r.state[i].Bytes))
			copy(cp, r.state[i].Bytes)
			out[i] = ComponentState{Bytes: cp}
		}
	}
	return Materialized{ExecutedInsns: tp.ExecutedInsns, State: out}, nil
}

func (r *Reader) applyDelta(i int, delta Delta) error {
	if delta.Unchanged {
		return nil
	}
	if isMemoryComponent(r.file.Meta.Components[i]) {
		switch {
		case delta.Patch != nil:
			if r.state[i].Bytes == nil {
				return fmt.Errorf("byte patch with no prior full value")
			}
			delta.Patch.ApplyInPlace(r.state[i].Bytes)
		case delta.Full != nil:
			// Copy: later patches mutate this buffer in place, and the
			// File's own delta must stay pristine for any future reader.
			adopted := make([]byte, len(delta.Full))
			copy(adopted, delta.Full)
			r.state[i] = ComponentState{Bytes: adopted}
		default:
			return fmt.Errorf("non-null memory delta carries neither full value nor patch")
		}
		return nil
	}

	if !delta.isRegs {
		return fmt.Errorf("non-null register delta is not a register map")
	}
	for k, v := range delta.Regs {
		r.state[i].Regs[k] = v
	}
	return nil
}

// All materialises the entire trace in order.
func (r *Reader) All() ([]Materialized, error) {
	out := make([]Materialized, 0, len(r.file.Trace))
	for i := range r.file.Trace {
		m, err := r.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
