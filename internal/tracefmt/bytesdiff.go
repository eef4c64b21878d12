package tracefmt

import "encoding/binary"

// BytesPatch is a concatenation of (offset uint32 LE, length uint32 LE,
// payload) records that, applied in order, overwrite [offset, offset+len)
// of a byte slice with payload.
type BytesPatch struct {
	Data []byte
}

// Changed runs separated by fewer than coalesceGap unchanged bytes are
// absorbed into a single patch record rather than starting a new one; the
// record headers cost 8 bytes each, so short gaps are cheaper to resend.
const coalesceGap = 8

// DiffBytes computes the patch that turns old into new. old and new must
// be the same length.
func DiffBytes(old, new []byte) BytesPatch {
	var patch []byte

	emit := func(offset int, data []byte) {
		var hdr [8]byte
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(offset))
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(data)))
		patch = append(patch, hdr[:]...)
		patch = append(patch, data...)
	}

	n := len(old)
	if len(new) < n {
		n = len(new)
	}

	start, end := -1, -1
	for i := 0; i < n; i++ {
		if old[i] != new[i] {
			if start == -1 {
				start, end = i, i
			} else if i-end-1 < coalesceGap {
				end = i
			} else {
				emit(start, new[start:end+1])
				start, end = i, i
			}
		}
	}
	if start != -1 {
		emit(start, new[start:end+1])
	}

	return BytesPatch{Data: patch}
}

// Apply overwrites the changed byte ranges of old and returns the result.
// old is not mutated.
func (p BytesPatch) Apply(old []byte) []byte {
	out := make([]byte, len(old))
	copy(out, old)

	offset := 0
	for offset < len(p.Data) {
		patchOffset := binary.LittleEndian.Uint32(p.Data[offset : offset+4])
		length := binary.LittleEndian.Uint32(p.Data[offset+4 : offset+8])
		payload := p.Data[offset+8 : offset+8+int(length)]
		copy(out[patchOffset:int(patchOffset)+len(payload)], payload)
		offset += 8 + int(length)
	}
	return out
}

// ApplyInPlace is the in-place variant the trace reader uses when
// materialising memory deltas, avoiding an allocation per tracepoint.
func (p BytesPatch) ApplyInPlace(buf []byte) {
	offset := 0
	for offset < len(p.Data) {
		patchOffset := binary.LittleEndian.Uint32(p.Data[offset : offset+4])
		length := binary.LittleEndian.Uint32(p.Data[offset+4 : offset+8])
		payload := p.Data[offset+8 : offset+8+int(length)]
		copy(buf[patchOffset:int(patchOffset)+len(payload)], payload)
		offset += 8 + int(length)
	}
}
