package vmregister

import "github.com/google/uuid"

// BlockID is a Block's stable, content-independent identity: two blocks
// with identical instruction streams still compare unequal, which a
// content hash would not give.
type BlockID uuid.UUID

func newBlockID() BlockID { return BlockID(uuid.New()) }

func (id BlockID) String() string { return uuid.UUID(id).String() }

// Block is a named, immutable-after-emission sequence of instructions.
// RegsUsed and NameRegs are compile-time bookkeeping retained on the
// finished Block for debugging and tests; the VM never consults them.
type Block struct {
	ID           BlockID
	Name         string
	Instructions []Instruction

	// RegsUsed is the set of register indices allocated at any point while
	// compiling this block.
	RegsUsed map[int]bool
	// NameRegs maps a bound identifier to its usage count and hosting
	// register.
	NameRegs map[string]*NameUsage
}

// NameUsage tracks how many times a name was referenced within a block and
// which register, if any, currently hosts it.
type NameUsage struct {
	Count    int
	Register int
	Bound    bool
}

func NewBlock(name string) *Block {
	return &Block{
		ID:       newBlockID(),
		Name:     name,
		RegsUsed: map[int]bool{},
		NameRegs: map[string]*NameUsage{},
	}
}

func (b *Block) Emit(instr Instruction) int {
	b.Instructions = append(b.Instructions, instr)
	return len(b.Instructions) - 1
}

func (b *Block) Len() int { return len(b.Instructions) }

// Module maps block identifiers to Blocks and names the entry block.
type Module struct {
	Blocks  map[BlockID]*Block
	Default BlockID
}

func NewModule() *Module {
	return &Module{Blocks: map[BlockID]*Block{}}
}

func (m *Module) AddBlock(b *Block) {
	m.Blocks[b.ID] = b
}

func (m *Module) Block(id BlockID) (*Block, bool) {
	b, ok := m.Blocks[id]
	return b, ok
}
