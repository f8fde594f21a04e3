package delta

import (
	"bytes"
	"io"

	"github.com/bamsammich/deltasync/internal/checksum"
)

// Kind identifies an instruction variant.
type Kind int

const (
	// OpLiteral appends Data verbatim.
	OpLiteral Kind = iota + 1
	// OpCopyBlock appends basis block Index.
	OpCopyBlock
)

func (k Kind) String() string {
	switch k {
	case OpLiteral:
		return "literal"
	case OpCopyBlock:
		return "copy"
	default:
		return "unknown"
	}
}

// Instruction is one step of reconstruction. Instructions carry no offsets;
// applying them in order appends to the output.
type Instruction struct {
	Data  []byte
	Index int
	Kind  Kind
}

// Sink consumes an instruction stream in order. Literal must not retain p
// after it returns. End is called exactly once, after the last instruction.
type Sink interface {
	Literal(p []byte) error
	CopyBlock(index int) error
	Flush() error
	End() error
}

// Program is a Sink that records the instruction stream in memory.
type Program struct {
	Ops   []Instruction
	Ended bool
}

func (p *Program) Literal(data []byte) error {
	p.Ops = append(p.Ops, Instruction{Kind: OpLiteral, Data: bytes.Clone(data)})
	return nil
}

func (p *Program) CopyBlock(index int) error {
	p.Ops = append(p.Ops, Instruction{Kind: OpCopyBlock, Index: index})
	return nil
}

func (*Program) Flush() error { return nil }

func (p *Program) End() error {
	p.Ended = true
	return nil
}

// Replay feeds the recorded instructions to sink, followed by End.
func (p *Program) Replay(sink Sink) error {
	for _, op := range p.Ops {
		var err error
		switch op.Kind {
		case OpLiteral:
			err = sink.Literal(op.Data)
		case OpCopyBlock:
			err = sink.CopyBlock(op.Index)
		}
		if err != nil {
			return err
		}
	}
	return sink.End()
}

// Apply reconstructs the new data from the basis bytes the checksum list was
// generated from.
func (p *Program) Apply(basis []byte, sums *checksum.List, w io.Writer) error {
	return p.Replay(NewReconstructor(basis, sums, w))
}
