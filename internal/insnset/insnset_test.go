package insnset

import (
	"os"
	"strings"
	"testing"

	"github.com/lookbusy1344/thumb2trace/internal/fieldshift"
)

func loadTestTable(t *testing.T) *Model {
	t.Helper()
	f, err := os.Open("../../testdata/instructions.xml")
	if err != nil {
		t.Fatalf("opening testdata: %v", err)
	}
	defer f.Close()
	m, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoadOrdersByPriorityThenVariant(t *testing.T) {
	m := loadTestTable(t)
	all := m.All()
	if len(all) != 6 {
		t.Fatalf("got %d encodings, want 6", len(all))
	}
	var priorities []int
	for _, e := range all {
		priorities = append(priorities, e.Priority)
	}
	for i := 1; i < len(priorities); i++ {
		if priorities[i] < priorities[i-1] {
			t.Errorf("encodings not sorted by priority: %v", priorities)
		}
	}
	// nop_T1 carries the lowest priority (5) and should sort first.
	if all[0].Variant != "nop_T1" {
		t.Errorf("first encoding = %s, want nop_T1", all[0].Variant)
	}
}

func TestGetByVariant(t *testing.T) {
	m := loadTestTable(t)
	enc, ok := m.Get("mov_imm_T1")
	if !ok {
		t.Fatal("Get(mov_imm_T1) not found")
	}
	if enc.Mnemonic != "MOVS" {
		t.Errorf("Mnemonic = %s, want MOVS", enc.Mnemonic)
	}
	if enc.NativeLength != 16 {
		t.Errorf("NativeLength = %d, want 16", enc.NativeLength)
	}
	if _, ok := m.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) unexpectedly found")
	}
}

func TestExtendAttachesTransform(t *testing.T) {
	m := loadTestTable(t)
	enc, ok := m.Get("add_imm_T3")
	if !ok {
		t.Fatal("Get(add_imm_T3) not found")
	}
	fs := enc.Operand("imm")
	if fs == nil {
		t.Fatal("Operand(imm) is nil")
	}
	if fs.GetTransform() != fieldshift.ThumbExpandImm {
		t.Errorf("transform = %q, want thumb_expand_imm", fs.GetTransform())
	}
}

func TestConstantLengthEncodingHasNoOperands(t *testing.T) {
	m := loadTestTable(t)
	enc, ok := m.Get("nop_T1")
	if !ok {
		t.Fatal("Get(nop_T1) not found")
	}
	if len(enc.OperandNames()) != 0 {
		t.Errorf("OperandNames() = %v, want none", enc.OperandNames())
	}
	// A native 16-bit encoding widens into the upper halfword of the 32-bit
	// match word.
	if enc.Mask() != 0xffff0000 {
		t.Errorf("Mask() = 0x%x, want 0xffff0000", enc.Mask())
	}
}

func TestDuplicateVariantIsRejected(t *testing.T) {
	xmlData := `<opcodes>
		<opcode name="A" variant="dup"><encoding bits="0000000000000000"/></opcode>
		<opcode name="B" variant="dup"><encoding bits="1111111111111111"/></opcode>
	</opcodes>`
	_, err := Load(strings.NewReader(xmlData))
	if err == nil {
		t.Fatal("expected an error for a duplicate variant tag")
	}
	if _, ok := err.(*TableParseError); !ok {
		t.Errorf("error = %T, want *TableParseError", err)
	}
}

func TestUnknownExtendTypeIsRejected(t *testing.T) {
	xmlData := `<opcodes>
		<opcode name="A" variant="bad_extend">
			<encoding bits="00000000 imm{8}"/>
			<extend variable="imm" type="not_a_transform"/>
		</opcode>
	</opcodes>`
	_, err := Load(strings.NewReader(xmlData))
	if err == nil {
		t.Fatal("expected an error for an unknown extend type")
	}
	if _, ok := err.(*TableParseError); !ok {
		t.Errorf("error = %T, want *TableParseError", err)
	}
}

func TestOpcodeWithoutEncodingIsSkipped(t *testing.T) {
	xmlData := `<opcodes>
		<opcode name="A" variant="no_encoding"/>
		<opcode name="B" variant="has_encoding"><encoding bits="0000000000000000"/></opcode>
	</opcodes>`
	m, err := Load(strings.NewReader(xmlData))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.All()) != 1 {
		t.Fatalf("got %d encodings, want 1", len(m.All()))
	}
	if _, ok := m.Get("no_encoding"); ok {
		t.Error("no_encoding should have been skipped")
	}
}
