package bitfield

import "testing"

func TestTokenizeConstantAndVariable(t *testing.T) {
	tokens, err := Tokenize("00100 Rd{3} imm{8}")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}
	if tokens[0].Kind != TokenConstant || tokens[0].Bits != "00100" {
		t.Errorf("token 0 = %+v", tokens[0])
	}
	if tokens[1].Kind != TokenVariable || tokens[1].Name != "Rd" || tokens[1].Width != 3 {
		t.Errorf("token 1 = %+v", tokens[1])
	}
	if tokens[2].Name != "imm" || tokens[2].Width != 8 {
		t.Errorf("token 2 = %+v", tokens[2])
	}
}

func TestTokenizeExplicitPosition(t *testing.T) {
	tokens, err := Tokenize("offset{1}.23")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	tok := tokens[0]
	if !tok.HasPos || tok.Position != 23 {
		t.Errorf("token = %+v, want explicit position 23", tok)
	}
}

func TestTokenizeDontCare(t *testing.T) {
	tokens, err := Tokenize("10?1")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if !tokens[0].DontCare {
		t.Errorf("expected don't-care flag set")
	}
}

func TestTokenizeRejectsGarbage(t *testing.T) {
	if _, err := Tokenize("00!!11"); err == nil {
		t.Fatal("expected an error for an invalid character")
	}
}

func TestParseMovImmT1(t *testing.T) {
	bf, err := Parse("00100 Rd{3} imm{8}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if bf.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", bf.Len())
	}
	// constant "00100" occupies the top 5 bits (11-15 of a 16-bit word).
	wantMask := uint32(0b11111_000_00000000) << 0
	wantMask = 0x1f << 11
	if bf.ConstantMask() != wantMask {
		t.Errorf("ConstantMask() = 0x%x, want 0x%x", bf.ConstantMask(), wantMask)
	}
	wantMatch := uint32(0b00100) << 11
	if bf.ConstantMatch() != wantMatch {
		t.Errorf("ConstantMatch() = 0x%x, want 0x%x", bf.ConstantMatch(), wantMatch)
	}

	names := bf.VarNames()
	if len(names) != 2 {
		t.Fatalf("VarNames() = %v, want 2 entries", names)
	}

	rd := bf.Var("Rd")
	word := uint16ToWord(0b00100_101_00000000)
	if got := rd.Extract(word); got != 0b101 {
		t.Errorf("Rd extract = %d, want 5", got)
	}

	imm := bf.Var("imm")
	word2 := uint16ToWord(0b00100_000_10101010)
	if got := imm.Extract(word2); got != 0b10101010 {
		t.Errorf("imm extract = %d, want %d", got, 0b10101010)
	}
}

func TestWidenShiftsExtraction(t *testing.T) {
	bf, err := Parse("00100 Rd{3} imm{8}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bf.Widen(32)
	if bf.ConstantMask() != (uint32(0x1f)<<11)<<16 {
		t.Errorf("widened ConstantMask() = 0x%x", bf.ConstantMask())
	}

	rd := bf.Var("Rd")
	word := uint32(0b00100_101_00000000) << 16
	if got := rd.Extract(word); got != 0b101 {
		t.Errorf("widened Rd extract = %d, want 5", got)
	}
}

func TestEnumerateAllRespectsConstantBits(t *testing.T) {
	bf, err := Parse("1010 x{2}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := bf.EnumerateAll()
	if len(all) != 4 {
		t.Fatalf("EnumerateAll() returned %d values, want 4", len(all))
	}
	for _, v := range all {
		if v>>2 != 0b1010 {
			t.Errorf("value 0x%x does not preserve constant bits", v)
		}
	}
}

func uint16ToWord(v int) uint32 {
	return uint32(v)
}
