// Package decoder maps a 32-bit Thumb-2 encoding word to (mnemonic,
// variant, length, operands). A Table can decode either by a flat
// priority-ordered scan or by walking a partition tree; the two forms
// give identical results, only the classification path differs.
package decoder

import (
	"fmt"

	"github.com/lookbusy1344/thumb2trace/internal/fieldshift"
	"github.com/lookbusy1344/thumb2trace/internal/insnset"
	"github.com/lookbusy1344/thumb2trace/internal/partition"
)

// Operand is one decoded operand value. Transform-bearing and plain
// operands are both stored, with IsSigned distinguishing which to read:
// sign-extending and immediate-expanding transforms yield a signed value,
// everything else stays unsigned.
type Operand struct {
	Unsigned uint32
	Signed   int32
	IsSigned bool
}

// AsInt64 returns the operand's value widened to int64, picking the
// signed or unsigned interpretation as appropriate.
func (o Operand) AsInt64() int64 {
	if o.IsSigned {
		return int64(o.Signed)
	}
	return int64(o.Unsigned)
}

// Instruction is the public decode result.
type Instruction struct {
	Mnemonic string
	Variant  string
	Length   int // 2 or 4 bytes
	Operands map[string]Operand

	// OperandOrder preserves the canonical register display order for
	// callers that print operands (the comparator's divergence report).
	OperandOrder []string
}

// Operand looks up a named operand.
func (ins *Instruction) Operand(name string) (Operand, bool) {
	v, ok := ins.Operands[name]
	return v, ok
}

// UnknownEncodingError reports that no constant mask/match pair in the
// table matched a word. Fatal in a strict decode; the comparator renders
// it as "unknown" and keeps going.
type UnknownEncodingError struct {
	Word uint32
}

func (e *UnknownEncodingError) Error() string {
	return fmt.Sprintf("decoder: unknown encoding for word 0x%08x", e.Word)
}

// Table is a ready-to-use decoder built from an instruction-set model.
type Table struct {
	model *insnset.Model
	tree  *partition.Node
}

// NewTable builds a Table backed by a flat priority-ordered scan over
// every encoding in the model - the simplest correct decoder, and the
// reference the partitioned form is checked against.
func NewTable(model *insnset.Model) *Table {
	return &Table{model: model}
}

// NewPartitionedTable additionally builds the partition decision tree
// over the model's (mask, match) pairs, so Decode walks the tree instead
// of scanning linearly. Results are identical to NewTable; only the
// classification path differs.
func NewPartitionedTable(model *insnset.Model) *Table {
	elements := make([]partition.Element, 0, len(model.All()))
	for _, e := range model.All() {
		elements = append(elements, partition.Element{ID: e.Variant, Mask: e.Mask(), Match: e.Match()})
	}
	tree := partition.Build(elements)
	return &Table{model: model, tree: tree}
}

// Decode classifies a 32-bit encoding word and extracts every named
// operand of the matching encoding.
func (t *Table) Decode(word uint32) (*Instruction, error) {
	enc := t.match(word)
	if enc == nil {
		return nil, &UnknownEncodingError{Word: word}
	}
	return extract(enc, word), nil
}

// match finds the matching Encoding for word, using the partition tree if
// one was built, else a flat scan. Ties are resolved by the model's
// existing (priority, variant) ordering.
func (t *Table) match(word uint32) *insnset.Encoding {
	if t.tree == nil {
		return t.scanMatch(word, t.model.All())
	}

	candidates := t.tree.Classify(word)
	// Re-resolve IDs back to Encoding records, preserving the model's
	// canonical tie-break order rather than the tree's leaf order.
	candidateSet := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		candidateSet[c.ID] = true
	}
	var ordered []*insnset.Encoding
	for _, e := range t.model.All() {
		if candidateSet[e.Variant] {
			ordered = append(ordered, e)
		}
	}
	return t.scanMatch(word, ordered)
}

func (t *Table) scanMatch(word uint32, encodings []*insnset.Encoding) *insnset.Encoding {
	for _, e := range encodings {
		if word&e.Mask() == e.Match() {
			return e
		}
	}
	return nil
}

func extract(e *insnset.Encoding, word uint32) *Instruction {
	names := e.OperandNames()
	operands := make(map[string]Operand, len(names))
	for _, name := range names {
		fs := e.Operand(name)
		operands[name] = operandValue(fs, word)
	}

	length := 4
	if e.NativeLength == 16 {
		length = 2
	}

	return &Instruction{
		Mnemonic:     e.Mnemonic,
		Variant:      e.Variant,
		Length:       length,
		Operands:     operands,
		OperandOrder: names,
	}
}

func operandValue(fs *fieldshift.FieldShift, word uint32) Operand {
	if fs.HasTransform() {
		return Operand{Signed: fs.ExtractSigned(word), IsSigned: true}
	}
	return Operand{Unsigned: fs.Extract(word)}
}

// WordFromBytes frames a byte slice for decoding: given at least 4 bytes,
// the 32-bit word is formed from little-endian halfwords with the high
// halfword first; given only 2 bytes, the low halfword is zero.
func WordFromBytes(b []byte) (uint32, error) {
	switch {
	case len(b) >= 4:
		return uint32(b[1])<<24 | uint32(b[0])<<16 | uint32(b[3])<<8 | uint32(b[2]), nil
	case len(b) >= 2:
		return uint32(b[1])<<24 | uint32(b[0])<<16, nil
	default:
		return 0, fmt.Errorf("decoder: need at least 2 bytes to form an encoding word, got %d", len(b))
	}
}

// DecodeBytes decodes the instruction at the start of b, applying the
// WordFromBytes framing rule first.
func (t *Table) DecodeBytes(b []byte) (*Instruction, error) {
	word, err := WordFromBytes(b)
	if err != nil {
		return nil, err
	}
	return t.Decode(word)
}
