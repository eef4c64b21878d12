// Package gen emits the generated direct decoder source file from an
// instruction-set model: a single Decode(word uint32) function, one
// constant-mask test per encoding, in priority order. The generator is
// the only place permitted to write this file; cmd/thumb2gen is its CLI
// wrapper.
package gen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/lookbusy1344/thumb2trace/internal/insnset"
)

const header = `// Code generated by thumb2gen from the instruction-set table. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"

	"github.com/lookbusy1344/thumb2trace/internal/decoder"
	"github.com/lookbusy1344/thumb2trace/internal/fieldshift"
)

// Decode classifies a 32-bit Thumb-2 encoding word and returns the
// matching instruction with every named operand extracted.
func Decode(word uint32) (*decoder.Instruction, error) {
{{range .Encodings}}	if word&0x{{printf "%x" .Mask}} == 0x{{printf "%x" .Match}} {
		return &decoder.Instruction{
			Mnemonic: {{printf "%q" .Mnemonic}},
			Variant:  {{printf "%q" .Variant}},
			Length:   {{.Length}},
			Operands: map[string]decoder.Operand{
{{range .Operands}}				{{printf "%q" .Name}}: {{.Literal}},
{{end}}			},
			OperandOrder: []string{ {{range .Operands}}{{printf "%q" .Name}}, {{end}} },
		}, nil
	}
{{end}}	return nil, &decoder.UnknownEncodingError{Word: word}
}

var _ = fmt.Sprintf // referenced only if no encoding needs it
var _ = fieldshift.NoTransform
`

type operandView struct {
	Name    string
	Literal string
}

type encodingView struct {
	Mnemonic string
	Variant  string
	Length   int
	Mask     uint32
	Match    uint32
	Operands []operandView
}

type pageView struct {
	Package   string
	Encodings []encodingView
}

// Generate renders the decode() source file for the given model into the
// named Go package.
func Generate(model *insnset.Model, packageName string) ([]byte, error) {
	page := pageView{Package: packageName}

	for _, e := range model.All() {
		length := 4
		if e.NativeLength == 16 {
			length = 2
		}
		ev := encodingView{
			Mnemonic: e.Mnemonic,
			Variant:  e.Variant,
			Length:   length,
			Mask:     e.Mask(),
			Match:    e.Match(),
		}
		for _, name := range e.OperandNames() {
			fs := e.Operand(name)
			expr := fs.GoExpression("word")
			var literal string
			if fs.HasTransform() {
				literal = fmt.Sprintf("decoder.Operand{IsSigned: true, Signed: %s}", fs.GoTransformCall(expr))
			} else {
				literal = fmt.Sprintf("decoder.Operand{Unsigned: uint32(%s)}", expr)
			}
			ev.Operands = append(ev.Operands, operandView{Name: name, Literal: literal})
		}
		page.Encodings = append(page.Encodings, ev)
	}

	tmpl, err := template.New("decoder").Parse(header)
	if err != nil {
		return nil, fmt.Errorf("gen: template error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("gen: render error: %w", err)
	}
	return buf.Bytes(), nil
}
