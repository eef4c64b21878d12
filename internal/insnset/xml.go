package insnset

import "encoding/xml"

// xmlOpcodeSet mirrors the instruction-set table's external XML shape: a
// flat list of <opcode> elements, each naming a mnemonic/variant pair
// with an optional <encoding>, <order> and zero or more <extend>
// children, decoded directly via encoding/xml struct tags.
type xmlOpcodeSet struct {
	XMLName xml.Name    `xml:"opcodes"`
	Opcodes []xmlOpcode `xml:"opcode"`
}

type xmlOpcode struct {
	Name     string       `xml:"name,attr"`
	Variant  string       `xml:"variant,attr"`
	Encoding *xmlEncoding `xml:"encoding"`
	Order    *xmlOrder    `xml:"order"`
	Extends  []xmlExtend  `xml:"extend"`
}

type xmlEncoding struct {
	Bits string `xml:"bits,attr"`
}

type xmlOrder struct {
	Priority int `xml:"priority,attr"`
}

type xmlExtend struct {
	Variable string `xml:"variable,attr"`
	Type     string `xml:"type,attr"`
}
