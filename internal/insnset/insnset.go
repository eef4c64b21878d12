// Package insnset loads the declared Thumb-2 instruction table and builds
// the per-variant Encoding records the partitioner and decoder operate on.
package insnset

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/lookbusy1344/thumb2trace/internal/bitfield"
	"github.com/lookbusy1344/thumb2trace/internal/fieldshift"
)

// Encoding is one instruction variant's fully assembled record: mnemonic,
// variant tag, native length, the widened constant mask/match pair, its
// named operands, and tie-break priority.
type Encoding struct {
	Mnemonic     string
	Variant      string
	NativeLength int // 16 or 32
	Priority     int

	bitfield *bitfield.Bitfield
}

// Mask is the widened (32-bit) constant mask.
func (e *Encoding) Mask() uint32 { return e.bitfield.ConstantMask() }

// Match is the widened (32-bit) constant match value.
func (e *Encoding) Match() uint32 { return e.bitfield.ConstantMatch() }

// OperandNames returns this encoding's operand names in display order.
func (e *Encoding) OperandNames() []string { return e.bitfield.VarNames() }

// Operand returns the FieldShift for one named operand.
func (e *Encoding) Operand(name string) *fieldshift.FieldShift { return e.bitfield.Var(name) }

// EnumerateAll enumerates every native-width word this encoding matches,
// for the exhaustive-uniqueness decoder test.
func (e *Encoding) EnumerateAll() []uint32 { return e.bitfield.EnumerateAll() }

// Model is the in-memory instruction-set table: Encoding records created
// once at start-up and treated as immutable thereafter.
type Model struct {
	encodings []*Encoding
	byVariant map[string]*Encoding
}

// Load parses the XML instruction table and builds every Encoding record.
// Opcodes lacking an <encoding> child are skipped with a warning; a
// malformed bitfield string is a TableParseError and aborts the whole
// load, since a broken table entry means a broken generator run.
func Load(r io.Reader) (*Model, error) {
	var set xmlOpcodeSet
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&set); err != nil {
		return nil, &TableParseError{Reason: fmt.Sprintf("invalid XML: %v", err)}
	}

	m := &Model{byVariant: make(map[string]*Encoding)}
	for _, op := range set.Opcodes {
		if op.Encoding == nil {
			log.Printf("insnset: warning: opcode %s/%s has no <encoding>, skipped", op.Name, op.Variant)
			continue
		}

		enc, err := buildEncoding(op)
		if err != nil {
			return nil, err
		}

		if _, dup := m.byVariant[enc.Variant]; dup {
			return nil, &TableParseError{Reason: fmt.Sprintf("duplicate variant_tag %q", enc.Variant)}
		}

		m.encodings = append(m.encodings, enc)
		m.byVariant[enc.Variant] = enc
	}

	sort.Slice(m.encodings, func(i, j int) bool {
		if m.encodings[i].Priority != m.encodings[j].Priority {
			return m.encodings[i].Priority < m.encodings[j].Priority
		}
		return m.encodings[i].Variant < m.encodings[j].Variant
	})

	return m, nil
}

func buildEncoding(op xmlOpcode) (*Encoding, error) {
	bf, err := bitfield.Parse(op.Encoding.Bits)
	if err != nil {
		return nil, &TableParseError{Reason: fmt.Sprintf("opcode %s/%s: %v", op.Name, op.Variant, err)}
	}
	if bf.Len() != 16 && bf.Len() != 32 {
		return nil, &TableParseError{Reason: fmt.Sprintf("opcode %s/%s: bitfield length %d invalid, must be 16 or 32", op.Name, op.Variant, bf.Len())}
	}
	bf.Widen(32)

	priority := 0
	if op.Order != nil {
		priority = op.Order.Priority
	}

	for _, ext := range op.Extends {
		fs := bf.Var(ext.Variable)
		if fs == nil {
			return nil, &TableParseError{Reason: fmt.Sprintf("opcode %s/%s: <extend> refers to unknown variable %q", op.Name, op.Variant, ext.Variable)}
		}
		transform, ok := fieldshift.ParseTransform(ext.Type)
		if !ok {
			return nil, &TableParseError{Reason: fmt.Sprintf("opcode %s/%s: unknown <extend> type %q", op.Name, op.Variant, ext.Type)}
		}
		fs.SetTransform(transform)
	}

	return &Encoding{
		Mnemonic:     op.Name,
		Variant:      op.Variant,
		NativeLength: bf.Len(),
		Priority:     priority,
		bitfield:     bf,
	}, nil
}

// Get looks up an Encoding by its variant tag.
func (m *Model) Get(variant string) (*Encoding, bool) {
	e, ok := m.byVariant[variant]
	return e, ok
}

// All returns every Encoding record, already ordered by (priority, variant)
// so overlapping encodings tie-break deterministically.
func (m *Model) All() []*Encoding {
	return m.encodings
}
