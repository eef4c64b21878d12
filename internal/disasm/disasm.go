// Package disasm shells out to an external ARM disassembler so the trace
// comparator's divergence report can show a second, independently
// produced reading of the offending instruction next to the direct
// decoder's own operand labelling.
package disasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultTool is the disassembler invoked when a config doesn't name one.
const DefaultTool = "arm-none-eabi-objdump"

// Disassembler wraps an external objdump-compatible binary. A zero value
// uses DefaultTool.
type Disassembler struct {
	// Tool is the executable name or path to invoke.
	Tool string
}

// New returns a Disassembler for the named tool, or DefaultTool if empty.
func New(tool string) *Disassembler {
	if tool == "" {
		tool = DefaultTool
	}
	return &Disassembler{Tool: tool}
}

// Available reports whether the configured tool can be found on PATH.
func (d *Disassembler) Available() bool {
	if d.Tool == "" {
		d.Tool = DefaultTool
	}
	_, err := exec.LookPath(d.Tool)
	return err == nil
}

// Disassemble renders the instruction bytes at addr as a single line of
// disassembly text. If the external tool is unavailable, it returns a
// descriptive placeholder rather than an error, so the comparator's
// divergence report still prints something useful without the tool
// installed; the decoder's own labelled operands carry the report either
// way.
func (d *Disassembler) Disassemble(addr uint32, code []byte) (string, error) {
	if !d.Available() {
		return fmt.Sprintf("<%s not found; raw bytes %x>", d.Tool, code), nil
	}

	tmp, err := os.CreateTemp("", "thumb2trace-disasm-*.bin")
	if err != nil {
		return "", fmt.Errorf("disasm: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(code); err != nil {
		return "", fmt.Errorf("disasm: write temp file: %w", err)
	}

	cmd := exec.Command(d.Tool,
		"-D",
		"-b", "binary",
		"-m", "arm",
		"-M", "force-thumb",
		fmt.Sprintf("--adjust-vma=0x%x", addr),
		tmp.Name(),
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("disasm: %s: %w", d.Tool, err)
	}

	return lastInstructionLine(out.String(), addr), nil
}

// lastInstructionLine picks the objdump output line for the given
// address out of the disassembly dump, which otherwise includes headers
// and the surrounding section listing.
func lastInstructionLine(output string, addr uint32) string {
	needle := fmt.Sprintf("%8x:", addr)
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, strings.TrimSpace(needle)) {
			return trimmed
		}
	}
	return strings.TrimSpace(output)
}

// WordBytes renders a 32-bit word as the 4 little-endian bytes a
// disassembler expects to see at that address, matching the ROM image's
// native byte order.
func WordBytes(word uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, word)
	return b
}
