package tracefmt

import "fmt"

// RegisterOrder is the fixed 17-entry register-set layout: r0..r15
// followed by psr.
var RegisterOrder = []string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"psr",
}

// Target is whatever a component probe samples from: a live debug session
// (internal/gdbremote.Client satisfies this) or a fixture in tests.
type Target interface {
	GetRegs() (map[string]uint32, error)
	ReadMemory(addr, length uint32) ([]byte, error)
}

// Descriptor is the trace file's per-component metadata. Address and
// Length are nil for the register set; memory regions carry both.
type Descriptor struct {
	Name       string
	Address    *uint32
	Length     *uint32
	IsConstant bool
}

// Probe samples one component's current state from a target and tracks
// enough history to emit the minimal delta for the next sample.
type Probe interface {
	Descriptor() Descriptor
	// Sample reads current state from target and returns the delta to
	// emit relative to whatever this probe last returned. The probe owns
	// its own baseline bookkeeping.
	Sample(target Target) (Delta, error)
	// Reset clears the probe's notion of "last observed state", forcing
	// the next Sample to emit a full value - used for the forced-full
	// final tracepoint. A constant memory probe keeps its captured value
	// and goes on reporting unchanged.
	Reset()
}

// RegisterSetProbe is the register-set component: always changing, never
// constant.
type RegisterSetProbe struct {
	name string
	last map[string]uint32
}

// NewRegisterSetProbe returns a register-set probe with the given
// component name (conventionally "regs").
func NewRegisterSetProbe(name string) *RegisterSetProbe {
	return &RegisterSetProbe{name: name}
}

func (p *RegisterSetProbe) Descriptor() Descriptor {
	return Descriptor{Name: p.name}
}

func (p *RegisterSetProbe) Reset() { p.last = nil }

func (p *RegisterSetProbe) Sample(target Target) (Delta, error) {
	current, err := target.GetRegs()
	if err != nil {
		return Delta{}, fmt.Errorf("tracefmt: register probe %q: %w", p.name, err)
	}

	if p.last == nil {
		p.last = current
		return RegsDelta(current), nil
	}

	changed := make(map[string]uint32)
	for _, name := range RegisterOrder {
		if current[name] != p.last[name] {
			changed[name] = current[name]
		}
	}
	p.last = current
	if len(changed) == 0 {
		return UnchangedDelta(), nil
	}
	return RegsDelta(changed), nil
}

// MemoryProbe is one fixed-address, fixed-length memory region, optionally
// marked constant (e.g. ROM): constant regions are captured once and the
// probe then always reports unchanged.
type MemoryProbe struct {
	name       string
	address    uint32
	length     uint32
	isConstant bool

	last     []byte
	captured bool
}

// NewMemoryProbe returns a memory-region probe.
func NewMemoryProbe(name string, address, length uint32, isConstant bool) *MemoryProbe {
	return &MemoryProbe{name: name, address: address, length: length, isConstant: isConstant}
}

func (p *MemoryProbe) Descriptor() Descriptor {
	addr, length := p.address, p.length
	return Descriptor{Name: p.name, Address: &addr, Length: &length, IsConstant: p.isConstant}
}

func (p *MemoryProbe) Reset() {
	if !p.isConstant {
		p.last = nil
		p.captured = false
	}
}

func (p *MemoryProbe) Sample(target Target) (Delta, error) {
	if p.isConstant && p.captured {
		return UnchangedDelta(), nil
	}

	current, err := target.ReadMemory(p.address, p.length)
	if err != nil {
		return Delta{}, fmt.Errorf("tracefmt: memory probe %q: %w", p.name, err)
	}

	if p.last == nil {
		p.last = current
		p.captured = true
		return FullBytesDelta(current), nil
	}

	if string(p.last) == string(current) {
		return UnchangedDelta(), nil
	}

	patch := DiffBytes(p.last, current)
	p.last = current
	p.captured = true
	return PatchDelta(patch), nil
}
