package fieldshift

import "testing"

func TestThumbExpandImm12_ZeroControl(t *testing.T) {
	cases := []struct {
		imm12 uint32
		want  uint32
	}{
		{0x000, 0},
		{0x0ff, 0xff},
		{0x1ff, 0x00ff00ff},
		{0x2ff, 0xff00ff00},
		{0x3ff, 0xffffffff}, // 0x3ff -> control 3, low8 0xff, replicated
	}
	for _, c := range cases {
		got := uint32(ThumbExpandImm12(c.imm12))
		if got != c.want {
			t.Errorf("ThumbExpandImm12(0x%x) = 0x%x, want 0x%x", c.imm12, got, c.want)
		}
	}
}

func TestThumbExpandImm12_Rotated(t *testing.T) {
	// top2 != 0: bit 7 set, rotate by bits 11..7.
	// imm12 = 0b10000_1111111 -> unrotated = 0x80 | 0x7f = 0xff, rotate = 16
	imm12 := uint32(0b1_0000_1111111)
	got := ThumbExpandImm12(imm12)
	want := int32((uint32(0xff) >> 16) | (uint32(0xff) << 16))
	if got != want {
		t.Errorf("ThumbExpandImm12(0x%x) = 0x%x, want 0x%x", imm12, uint32(got), uint32(want))
	}

	// rotate = 8 lands the full 0xff byte in the top byte.
	if got := uint32(ThumbExpandImm12(0x47f)); got != 0xff000000 {
		t.Errorf("ThumbExpandImm12(0x47f) = 0x%x, want 0xff000000", got)
	}
}

func TestSignExtend(t *testing.T) {
	if got := SignExtend(0x7ff, 12); got != 0x7ff {
		t.Errorf("positive SignExtend got %d, want %d", got, 0x7ff)
	}
	if got := SignExtend(0xfff, 12); got != -1 {
		t.Errorf("negative SignExtend got %d, want -1", got)
	}
	if got := SignExtend(0x800, 12); got != -2048 {
		t.Errorf("boundary SignExtend got %d, want -2048", got)
	}
	if got := SignExtend(0x80000, 20); got != -0x80000 {
		t.Errorf("SignExtend(0x80000, 20) = %d, want %d", got, -0x80000)
	}
}

func TestFieldShiftExtractSingleGroup(t *testing.T) {
	fs := New()
	fs.Add(0, 4, 0) // identity: low 4 bits, no shift
	if got := fs.Extract(0xabcd); got != 0xd {
		t.Errorf("Extract() = 0x%x, want 0xd", got)
	}
}

func TestFieldShiftExtractMultiGroup(t *testing.T) {
	// Two source ranges land adjacent in the destination: bits 8..11 of
	// the word map to destination bits 4..7, bits 0..3 map to
	// destination bits 0..3 unchanged.
	fs := New()
	fs.Add(8, 4, 4)
	fs.Add(0, 4, 0)
	word := uint32(0xa05) // bits 0-3 = 0x5, bits 8-11 = 0xa
	if got := fs.Extract(word); got != 0xa5 {
		t.Errorf("Extract() = 0x%x, want 0xa5", got)
	}
}

func TestFieldShiftWidenShift(t *testing.T) {
	fs := New()
	fs.Add(0, 4, 0)
	fs.SetWidenShift(16)
	word := uint32(0xd) << 16
	if got := fs.Extract(word); got != 0xd {
		t.Errorf("Extract() with widen = 0x%x, want 0xd", got)
	}
}

func TestGoTypeSelection(t *testing.T) {
	single := New()
	single.Add(0, 1, 0)
	if got := single.GoType(); got != "bool" {
		t.Errorf("1-bit GoType() = %q, want bool", got)
	}

	byteWide := New()
	byteWide.Add(0, 8, 0)
	if got := byteWide.GoType(); got != "uint8" {
		t.Errorf("8-bit GoType() = %q, want uint8", got)
	}

	wide := New()
	wide.Add(0, 12, 0)
	if got := wide.GoType(); got != "uint16" {
		t.Errorf("12-bit GoType() = %q, want uint16", got)
	}

	transformed := New()
	transformed.Add(0, 12, 0)
	transformed.SetTransform(ThumbExpandImm)
	if got := transformed.GoType(); got != "int32" {
		t.Errorf("transformed GoType() = %q, want int32", got)
	}
}

func TestGoExpressionMatchesExtract(t *testing.T) {
	fs := New()
	fs.Add(8, 4, 4)
	fs.Add(0, 4, 0)
	expr := fs.GoExpression("word")
	if expr == "" {
		t.Fatal("GoExpression returned empty string")
	}
	// Same grouping Extract applies: shift -4 group first, then shift 0.
	want := "((word & 0xf00) >> 4) | (word & 0xf)"
	if expr != want {
		t.Errorf("GoExpression() = %q, want %q", expr, want)
	}
}

func TestSignExtend24EOR(t *testing.T) {
	// sign=0, j1=1, j2=1 -> i1 = (1^0)^1 = 0, i2 = (1^0)^1 = 0
	value := uint32(1)<<22 | uint32(1)<<21 // sign bit23 clear, j1 bit22, j2 bit21
	got := SignExtend24EOR(value)
	if got < 0 {
		t.Errorf("expected non-negative result for sign=0, got %d", got)
	}
}
