// Package psr decodes the Cortex-M program status register's condition
// flags for the comparator's divergence report, so the N/Z/C/V/Q flag
// string is computed in exactly one place.
package psr

// Flags holds the five condition-code bits of a PSR value.
type Flags struct {
	N, Z, C, V, Q bool
}

const (
	bitN = 31
	bitZ = 30
	bitC = 29
	bitV = 28
	bitQ = 27
)

// NZCVMask isolates the four condition flags the comparator checks:
// N, Z, C, V. Q (bit 27) is deliberately excluded - see CompareMask.
const NZCVMask uint32 = 0xf0000000

// Decode extracts the flag bits from a raw PSR value.
func Decode(value uint32) Flags {
	return Flags{
		N: value&(1<<bitN) != 0,
		Z: value&(1<<bitZ) != 0,
		C: value&(1<<bitC) != 0,
		V: value&(1<<bitV) != 0,
		Q: value&(1<<bitQ) != 0,
	}
}

// String renders the flags as a fixed nine-character "N Z C V Q" style
// string (five flag positions separated by single spaces), upper case
// when set and a blank placeholder when clear.
func (f Flags) String() string {
	render := func(set bool, ch byte) byte {
		if set {
			return ch
		}
		return ' '
	}
	out := make([]byte, 0, 9)
	out = append(out, render(f.N, 'N'), ' ')
	out = append(out, render(f.Z, 'Z'), ' ')
	out = append(out, render(f.C, 'C'), ' ')
	out = append(out, render(f.V, 'V'), ' ')
	out = append(out, render(f.Q, 'Q'))
	return string(out)
}

// CompareMask masks a PSR value down to just the bits the comparator
// checks for equality. Q (bit 27, saturation) is currently NOT compared:
// the emulators under test track it inconsistently around some DSP
// instructions, so including it would flag divergences that agree on
// everything architectural the tools actually model.
func CompareMask(psr uint32) uint32 {
	return psr & NZCVMask
}
