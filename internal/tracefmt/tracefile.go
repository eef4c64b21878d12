package tracefmt

import (
	"encoding/json"
	"fmt"
)

// FileVersion is the only trace file format version this implementation
// writes or accepts. Version 1 predates delta compression and is not
// read here.
const FileVersion = 2

// Emulator names the client that produced the trace.
type Emulator string

const (
	EmulatorQEMU  Emulator = "qemu"
	EmulatorT2Sim Emulator = "t2sim"
)

// descriptorWire is the JSON shape of one entry in meta.components.
type descriptorWire struct {
	Name       string  `json:"name"`
	Address    *uint32 `json:"address,omitempty"`
	Length     *uint32 `json:"length,omitempty"`
	IsConstant bool    `json:"is_constant,omitempty"`
}

// Meta is the trace file's top-level metadata.
type Meta struct {
	RomBase  uint32 `json:"rom_base"`
	RamBase  uint32 `json:"ram_base"`
	RamSize  uint32 `json:"ram_size"`
	RomImage []byte `json:"-"`
	// RomChecksum is an FNV-1a digest of RomImage and RomImageLength its
	// byte count, so a comparator can cheaply confirm two traces were
	// captured against the same ROM without having to diff the whole
	// image.
	RomChecksum    uint32       `json:"rom_checksum"`
	RomImageLength uint32       `json:"rom_image_length"`
	Emulator       Emulator     `json:"emulator"`
	Version        int          `json:"version"`
	Components     []Descriptor `json:"-"`
}

type metaWire struct {
	RomBase        uint32           `json:"rom_base"`
	RamBase        uint32           `json:"ram_base"`
	RamSize        uint32           `json:"ram_size"`
	RomImage       Delta            `json:"rom_image"`
	RomChecksum    uint32           `json:"rom_checksum"`
	RomImageLength uint32           `json:"rom_image_length"`
	Emulator       Emulator         `json:"emulator"`
	Version        int              `json:"version"`
	Components     []descriptorWire `json:"components"`
}

// Tracepoint is one captured sample: the instruction counter it was
// taken at, plus one delta per component.
type Tracepoint struct {
	ExecutedInsns uint64  `json:"executed_insns"`
	State         []Delta `json:"state"`
}

// File is the full in-memory representation of a trace file.
type File struct {
	Meta  Meta
	Trace []Tracepoint
}

func (m Meta) toWire() (metaWire, error) {
	wire := metaWire{
		RomBase:        m.RomBase,
		RamBase:        m.RamBase,
		RamSize:        m.RamSize,
		RomImage:       FullBytesDelta(m.RomImage),
		RomChecksum:    m.RomChecksum,
		RomImageLength: m.RomImageLength,
		Emulator:       m.Emulator,
		Version:        m.Version,
	}
	for _, d := range m.Components {
		wire.Components = append(wire.Components, descriptorWire{
			Name: d.Name, Address: d.Address, Length: d.Length, IsConstant: d.IsConstant,
		})
	}
	return wire, nil
}

func (w metaWire) toMeta() (Meta, error) {
	if w.RomImage.Unchanged || w.RomImage.isRegs {
		return Meta{}, fmt.Errorf("tracefmt: meta.rom_image must be a full byte value")
	}
	image := w.RomImage.Full
	if w.RomImage.Patch != nil {
		return Meta{}, fmt.Errorf("tracefmt: meta.rom_image must not be a patch")
	}

	m := Meta{
		RomBase:        w.RomBase,
		RamBase:        w.RamBase,
		RamSize:        w.RamSize,
		RomImage:       image,
		RomChecksum:    w.RomChecksum,
		RomImageLength: w.RomImageLength,
		Emulator:       w.Emulator,
		Version:        w.Version,
	}
	for _, d := range w.Components {
		m.Components = append(m.Components, Descriptor{
			Name: d.Name, Address: d.Address, Length: d.Length, IsConstant: d.IsConstant,
		})
	}
	return m, nil
}

// MarshalJSON renders the top-level {meta, trace} object.
func (f File) MarshalJSON() ([]byte, error) {
	wireMeta, err := f.Meta.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Meta  metaWire     `json:"meta"`
		Trace []Tracepoint `json:"trace"`
	}{Meta: wireMeta, Trace: f.Trace})
}

// UnmarshalJSON parses the top-level {meta, trace} object.
func (f *File) UnmarshalJSON(raw []byte) error {
	var wire struct {
		Meta  metaWire     `json:"meta"`
		Trace []Tracepoint `json:"trace"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("tracefmt: malformed trace file: %w", err)
	}
	meta, err := wire.Meta.toMeta()
	if err != nil {
		return err
	}
	if meta.Version != FileVersion {
		return fmt.Errorf("tracefmt: unsupported trace file version %d, want %d", meta.Version, FileVersion)
	}
	f.Meta = meta
	f.Trace = wire.Trace
	return nil
}

// SameComponents reports whether two component-descriptor sequences are
// structurally identical: same count, names, addresses, lengths and
// constant flags.
func SameComponents(a, b []Descriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].IsConstant != b[i].IsConstant {
			return false
		}
		if (a[i].Address == nil) != (b[i].Address == nil) {
			return false
		}
		if a[i].Address != nil && *a[i].Address != *b[i].Address {
			return false
		}
		if (a[i].Length == nil) != (b[i].Length == nil) {
			return false
		}
		if a[i].Length != nil && *a[i].Length != *b[i].Length {
			return false
		}
	}
	return true
}
