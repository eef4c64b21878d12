package bitfield

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/thumb2trace/internal/fieldshift"
)

// registerOrder gives the fixed display/iteration order for operand
// names: destinations first, then sources, immediates and single-letter
// flag fields, matching how disassembly output lists them.
var registerOrder = buildRegisterOrder([]string{
	"Rd", "Rdn", "Rdm",
	"Rt", "Rn", "Rm",
	"Rtx",
	"RdLo", "RdHi",
	"Vd", "Vn", "Vm",
	"rotate", "shift", "imm", "satimm", "op", "cond", "firstcond",
	"mask", "register_list",
	"SYSm",
	"type", "coproc",
	"CRd", "CRn", "CRm", "opcA", "opcB", "Ra", "RtA", "RtB",
	"tb",
	"RM",
	"H", "D", "E", "P", "N", "M", "F", "I", "R", "S", "T", "U", "W",
	"j", "k",
	"sf", "sx", "sz",
	"msb", "option", "width",
	"Rmx",
})

func buildRegisterOrder(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}

func regSortKey(name string) int {
	if k, ok := registerOrder[name]; ok {
		return k
	}
	return 999
}

// Bitfield is the fully assembled form of one encoding string: its bit
// length, constant mask/match value, and a FieldShift per named operand.
type Bitfield struct {
	bitLen        int
	constantMask  uint32
	constantValue uint32
	variables     map[string]*fieldshift.FieldShift
	widenTo       int
}

// Parse lexes and assembles an encoding string into a Bitfield.
func Parse(encoding string) (*Bitfield, error) {
	tokens, err := Tokenize(encoding)
	if err != nil {
		return nil, err
	}
	return assemble(tokens)
}

func assemble(tokens []Token) (*Bitfield, error) {
	bf := &Bitfield{variables: make(map[string]*fieldshift.FieldShift)}

	for _, t := range tokens {
		bf.bitLen += t.Len()
	}

	// First pass: assign implicit destination positions, counting
	// appearances from the right (little-end first), walking the token
	// sequence in reverse (the sequence is stored most-significant-token
	// first, so reverse order is right-to-left across the word).
	nextPos := make(map[string]int)
	assigned := make([]Token, len(tokens))
	copy(assigned, tokens)
	for i := len(assigned) - 1; i >= 0; i-- {
		t := &assigned[i]
		if t.Kind != TokenVariable || t.HasPos {
			continue
		}
		t.Position = nextPos[t.Name]
		nextPos[t.Name] += t.Width
	}

	// Second pass: walk right-to-left accumulating the source bit offset
	// of each token within the encoding word.
	type placed struct {
		tok      Token
		srcShift int
	}
	placedTokens := make([]placed, len(assigned))
	shiftPos := 0
	for i := len(assigned) - 1; i >= 0; i-- {
		placedTokens[i] = placed{tok: assigned[i], srcShift: shiftPos}
		shiftPos += assigned[i].Len()
	}

	constant := fieldshift.New()
	varRuns := make(map[string][]placed)
	for _, p := range placedTokens {
		if p.tok.Kind == TokenConstant {
			if !p.tok.DontCare {
				val, err := constantTokenValue(p.tok)
				if err != nil {
					return nil, err
				}
				constant.Add(p.srcShift, p.tok.Len(), p.srcShift)
				bf.constantValue |= val << uint(p.srcShift)
			}
			continue
		}
		varRuns[p.tok.Name] = append(varRuns[p.tok.Name], p)
	}

	// A bitfield with no constant bits at all (all don't-care or all
	// variable) is legal and simply has an all-zero constant mask.
	mask, err := constant.StaticMask()
	if err != nil {
		mask = 0
	}
	bf.constantMask = mask

	for name, runs := range varRuns {
		sort.Slice(runs, func(i, j int) bool { return runs[i].tok.Position < runs[j].tok.Position })
		fs := fieldshift.New()
		for _, r := range runs {
			fs.Add(r.srcShift, r.tok.Len(), r.tok.Position)
		}
		bf.variables[name] = fs
	}

	return bf, nil
}

func constantTokenValue(t Token) (uint32, error) {
	var v uint32
	for _, c := range t.Bits {
		v <<= 1
		if c == '1' {
			v |= 1
		} else if c != '0' {
			return 0, fmt.Errorf("bitfield: malformed constant run %q", t.Bits)
		}
	}
	return v, nil
}

// Len returns the native bit length of the encoding (16 or 32).
func (bf *Bitfield) Len() int { return bf.bitLen }

// VarNames returns the operand names in display order.
func (bf *Bitfield) VarNames() []string {
	names := make([]string, 0, len(bf.variables))
	for n := range bf.variables {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return regSortKey(names[i]) < regSortKey(names[j]) })
	return names
}

// Var returns the FieldShift for one named operand, applying any pending
// widen-shift.
func (bf *Bitfield) Var(name string) *fieldshift.FieldShift {
	fs := bf.variables[name]
	if fs == nil {
		return nil
	}
	fs.SetWidenShift(bf.widenShiftLeft())
	return fs
}

// Widen marks this bitfield as logically widened to widenTo bits (e.g. 32),
// shifting every extract expression left by widenTo - native length.
func (bf *Bitfield) Widen(widenTo int) {
	bf.widenTo = widenTo
}

func (bf *Bitfield) widenShiftLeft() int {
	if bf.widenTo == 0 {
		return 0
	}
	return bf.widenTo - bf.bitLen
}

// ConstantMask returns the widened constant mask.
func (bf *Bitfield) ConstantMask() uint32 {
	return bf.constantMask << uint(bf.widenShiftLeft())
}

// ConstantMatch returns the widened constant match value.
func (bf *Bitfield) ConstantMatch() uint32 {
	return bf.constantValue << uint(bf.widenShiftLeft())
}

// dofMask returns the don't-care-or-variable bits within the native width.
func (bf *Bitfield) dofMask() uint32 {
	if bf.bitLen >= 32 {
		return ^bf.constantMask
	}
	full := uint32((uint64(1) << uint(bf.bitLen)) - 1)
	return full &^ bf.constantMask
}

// EnumerateAll yields every concrete native-width encoding value that
// satisfies this bitfield's constant bits, varying every don't-care and
// operand bit across all combinations. Used by the exhaustive-uniqueness
// decoder test; not intended for bitfields with many free bits.
func (bf *Bitfield) EnumerateAll() []uint32 {
	dof := bf.dofMask()
	var freeBits []int
	for i := 0; i < bf.bitLen; i++ {
		if dof&(1<<uint(i)) != 0 {
			freeBits = append(freeBits, i)
		}
	}

	results := []uint32{bf.constantValue}
	for _, bit := range freeBits {
		next := make([]uint32, 0, len(results)*2)
		for _, v := range results {
			next = append(next, v, v|(1<<uint(bit)))
		}
		results = next
	}
	return results
}
