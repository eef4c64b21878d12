// Package romimage loads the flat ROM image a capture run is driven
// against and computes the checksum recorded in the trace file's meta
// block.
package romimage

import (
	"fmt"
	"hash/fnv"
	"os"
)

// Image is a loaded ROM blob and the base address it is mapped at.
type Image struct {
	Base uint32
	Data []byte
}

// Load reads the file at path in full.
func Load(path string, base uint32) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("romimage: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("romimage: %s is empty", path)
	}
	return &Image{Base: base, Data: data}, nil
}

// Checksum computes the FNV-1a digest the trace file's meta.rom_checksum
// field carries, letting a comparator cheaply confirm two traces were
// captured against the same ROM contents without diffing the whole
// image.
func (img *Image) Checksum() uint32 {
	h := fnv.New32a()
	h.Write(img.Data)
	return h.Sum32()
}

// Contains reports whether addr falls within the image.
func (img *Image) Contains(addr uint32) bool {
	return addr >= img.Base && int(addr-img.Base) < len(img.Data)
}

// ReadAt reads length bytes at addr from the image.
func (img *Image) ReadAt(addr, length uint32) ([]byte, error) {
	if !img.Contains(addr) || int(addr-img.Base)+int(length) > len(img.Data) {
		return nil, fmt.Errorf("romimage: [0x%x, 0x%x) out of bounds for image at base 0x%x length %d", addr, addr+length, img.Base, len(img.Data))
	}
	offset := addr - img.Base
	return img.Data[offset : offset+length], nil
}
