package tracefmt

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// shortBytesThreshold is the byte-count boundary below which the wire
// format stores raw base64 rather than paying zlib's fixed overhead.
const shortBytesThreshold = 8

// encodeBytesWire renders raw bytes as a `{"__t":"buc"|"bz","data":...}`
// object, choosing the short or compressed form by the 8-byte threshold.
func encodeBytesWire(b []byte) ([]byte, error) {
	if len(b) < shortBytesThreshold {
		return json.Marshal(struct {
			T    string `json:"__t"`
			Data string `json:"data"`
		}{T: "buc", Data: base64.StdEncoding.EncodeToString(b)})
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("tracefmt: zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("tracefmt: zlib compress: %w", err)
	}
	return json.Marshal(struct {
		T    string `json:"__t"`
		Data string `json:"data"`
	}{T: "bz", Data: base64.StdEncoding.EncodeToString(compressed.Bytes())})
}

// decodeBytesWire is the inverse of encodeBytesWire, also accepting the
// recursive "bd" shape by reading its nested "data" blob.
func decodeBytesWire(raw []byte) ([]byte, error) {
	var head struct {
		T    string          `json:"__t"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("tracefmt: malformed bytes wire value: %w", err)
	}

	switch head.T {
	case "buc":
		var s string
		if err := json.Unmarshal(head.Data, &s); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(s)
	case "bz":
		var s string
		if err := json.Unmarshal(head.Data, &s); err != nil {
			return nil, err
		}
		packed, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		r, err := zlib.NewReader(bytes.NewReader(packed))
		if err != nil {
			return nil, fmt.Errorf("tracefmt: zlib decompress: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case "bd":
		// A patch's own payload is itself wire-encoded bytes, recursively.
		return decodeBytesWire(head.Data)
	default:
		return nil, fmt.Errorf("tracefmt: unknown bytes wire discriminator %q", head.T)
	}
}

// Delta is one component's entry in a tracepoint's state array: either
// unchanged (JSON null), a full value, or an incremental change, with the
// concrete shape depending on whether the owning component is a register
// set or a memory region.
type Delta struct {
	Unchanged bool

	// Register-set shape: a full (17-key) or partial key->value map.
	Regs   map[string]uint32
	isRegs bool

	// Memory shape: either a full byte replacement or an incremental patch.
	Full  []byte
	Patch *BytesPatch
}

// UnchangedDelta is the "nothing changed since last tracepoint" value.
func UnchangedDelta() Delta { return Delta{Unchanged: true} }

// RegsDelta wraps a full or partial register map.
func RegsDelta(m map[string]uint32) Delta { return Delta{Regs: m, isRegs: true} }

// FullBytesDelta wraps a complete byte replacement (first appearance of a
// memory component).
func FullBytesDelta(b []byte) Delta { return Delta{Full: b} }

// PatchDelta wraps an incremental byte patch.
func PatchDelta(p BytesPatch) Delta { return Delta{Patch: &p} }

// MarshalJSON implements the polymorphic wire encoding: null, a plain
// register map, or a "__t"-tagged bytes/patch object.
func (d Delta) MarshalJSON() ([]byte, error) {
	switch {
	case d.Unchanged:
		return []byte("null"), nil
	case d.isRegs:
		return json.Marshal(d.Regs)
	case d.Patch != nil:
		nested, err := encodeBytesWire(d.Patch.Data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			T    string          `json:"__t"`
			Data json.RawMessage `json:"data"`
		}{T: "bd", Data: nested})
	default:
		return encodeBytesWire(d.Full)
	}
}

// UnmarshalJSON distinguishes the four shapes without needing to know the
// owning component's kind ahead of time: null, a "__t"-tagged bytes/patch
// object, or a plain register-map object.
func (d *Delta) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if string(trimmed) == "null" {
		*d = Delta{Unchanged: true}
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("tracefmt: malformed delta: %w", err)
	}

	if _, tagged := probe["__t"]; tagged {
		var head struct {
			T string `json:"__t"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return err
		}
		if head.T == "bd" {
			patchBytes, err := decodeBytesWire(raw)
			if err != nil {
				return err
			}
			*d = Delta{Patch: &BytesPatch{Data: patchBytes}}
			return nil
		}
		full, err := decodeBytesWire(raw)
		if err != nil {
			return err
		}
		*d = Delta{Full: full}
		return nil
	}

	regs := make(map[string]uint32, len(probe))
	for k, v := range probe {
		var n uint32
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("tracefmt: malformed register delta entry %q: %w", k, err)
		}
		regs[k] = n
	}
	*d = Delta{Regs: regs, isRegs: true}
	return nil
}
