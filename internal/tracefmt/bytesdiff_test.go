package tracefmt

import "testing"

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiffBytesRoundTrip(t *testing.T) {
	old := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	newData := []byte{0, 1, 9, 3, 4, 5, 6, 7, 8, 99}

	patch := DiffBytes(old, newData)
	got := patch.Apply(old)
	if !bytesEqual(got, newData) {
		t.Errorf("Apply() = %v, want %v", got, newData)
	}
}

func TestDiffBytesCoalescesCloseRuns(t *testing.T) {
	old := make([]byte, 20)
	newData := make([]byte, 20)
	copy(newData, old)
	newData[0] = 0xff
	newData[5] = 0xff // gap of 4 unchanged bytes, below coalesceGap

	patch := DiffBytes(old, newData)
	records := countPatchRecords(patch)
	if records != 1 {
		t.Errorf("got %d patch records, want 1 (coalesced)", records)
	}
}

func TestDiffBytesSplitsFarRuns(t *testing.T) {
	old := make([]byte, 20)
	newData := make([]byte, 20)
	copy(newData, old)
	newData[0] = 0xff
	newData[15] = 0xff // far beyond coalesceGap

	patch := DiffBytes(old, newData)
	records := countPatchRecords(patch)
	if records != 2 {
		t.Errorf("got %d patch records, want 2 (not coalesced)", records)
	}
}

func TestDiffBytesNoChange(t *testing.T) {
	old := []byte{1, 2, 3, 4}
	patch := DiffBytes(old, old)
	if len(patch.Data) != 0 {
		t.Errorf("expected an empty patch for identical input, got %d bytes", len(patch.Data))
	}
}

func TestApplyInPlace(t *testing.T) {
	old := []byte{1, 2, 3, 4, 5}
	newData := []byte{1, 9, 3, 4, 5}
	patch := DiffBytes(old, newData)

	buf := make([]byte, len(old))
	copy(buf, old)
	patch.ApplyInPlace(buf)
	if !bytesEqual(buf, newData) {
		t.Errorf("ApplyInPlace() = %v, want %v", buf, newData)
	}
}

func countPatchRecords(p BytesPatch) int {
	count := 0
	offset := 0
	for offset < len(p.Data) {
		length := int(p.Data[offset+4]) | int(p.Data[offset+5])<<8 | int(p.Data[offset+6])<<16 | int(p.Data[offset+7])<<24
		offset += 8 + length
		count++
	}
	return count
}
