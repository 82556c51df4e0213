// Package lineage holds the branching history of a colony as an arena of
// node records addressed by stable indices. Terminal nodes are never
// removed; the live frontier of the simulation is the set of leaves whose
// fate is still undecided.
package lineage

import (
	"errors"
	"fmt"
	"strconv"

	"cellsim/internal/geometry"
	"cellsim/internal/trait"
)

// Fate is the terminal flag of a node. A node with FateDivision or
// FateDeath is immutable from then on.
type Fate string

const (
	FateNone     Fate = "none"
	FateDivision Fate = "division"
	FateDeath    Fate = "death"
)

var (
	ErrNodeOutOfRange  = errors.New("node index out of range")
	ErrNodeHasChildren = errors.New("node already has children")
	ErrNodeTerminal    = errors.New("node is terminal")
	ErrNodeNotTerminal = errors.New("dividing node must carry a division fate")
)

// Node is one cell at one point in its lifetime. Parent and Children hold
// arena indices; Parent is -1 for roots. A node has exactly zero or exactly
// two children.
type Node struct {
	ID                int
	Parent            int
	Children          []int
	Generation        int
	Disc              geometry.Circle
	Fitness           trait.Trait
	Signal            trait.Trait
	DivisionThreshold float64 // hours since birth
	DeathThreshold    float64 // hours since birth
	SecondsSinceBirth int
	Fate              Fate
	TreatmentName     string
	BornAtFrame       int
}

// Tree is the arena of lineage nodes for one colony. A colony seeded with
// several founding cells has several roots sharing the arena.
type Tree struct {
	colonyName string
	nodes      []Node
	roots      []int
}

func NewTree(colonyName string) *Tree {
	return &Tree{colonyName: colonyName}
}

func (t *Tree) ColonyName() string {
	return t.colonyName
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns a pointer into the arena. The pointer is invalidated by the
// next AddRoot or AddChildren call.
func (t *Tree) Node(i int) (*Node, error) {
	if i < 0 || i >= len(t.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrNodeOutOfRange, i)
	}
	return &t.nodes[i], nil
}

// AddRoot appends a founding cell. Its parent link and generation are
// forced to the root values.
func (t *Tree) AddRoot(n Node) int {
	n.Parent = -1
	n.Children = nil
	n.Generation = 0
	n.Fate = FateNone
	idx := len(t.nodes)
	t.nodes = append(t.nodes, n)
	t.roots = append(t.roots, idx)
	return idx
}

func (t *Tree) Roots() []int {
	out := make([]int, len(t.roots))
	copy(out, t.roots)
	return out
}

// AddChildren attaches exactly two children to a dividing node. The parent
// must already carry FateDivision and must not have children yet; the
// children's generation and parent links are derived from the parent.
func (t *Tree) AddChildren(parent int, first, second Node) (int, int, error) {
	p, err := t.Node(parent)
	if err != nil {
		return 0, 0, err
	}
	if len(p.Children) != 0 {
		return 0, 0, fmt.Errorf("%w: node %d", ErrNodeHasChildren, parent)
	}
	if p.Fate != FateDivision {
		return 0, 0, fmt.Errorf("%w: node %d has fate %q", ErrNodeNotTerminal, parent, p.Fate)
	}

	prepare := func(n Node) Node {
		n.Parent = parent
		n.Children = nil
		n.Generation = p.Generation + 1
		n.Fate = FateNone
		return n
	}
	firstIdx := len(t.nodes)
	t.nodes = append(t.nodes, prepare(first), prepare(second))
	secondIdx := firstIdx + 1
	t.nodes[parent].Children = []int{firstIdx, secondIdx}
	return firstIdx, secondIdx, nil
}

// MarkDivided flags a live leaf as divided; AddChildren must follow within
// the same frame.
func (t *Tree) MarkDivided(i int) error {
	return t.setTerminalFate(i, FateDivision)
}

// MarkDead flags a live leaf as dead. No children may ever be attached.
func (t *Tree) MarkDead(i int) error {
	return t.setTerminalFate(i, FateDeath)
}

func (t *Tree) setTerminalFate(i int, fate Fate) error {
	n, err := t.Node(i)
	if err != nil {
		return err
	}
	if n.Fate != FateNone {
		return fmt.Errorf("%w: node %d already has fate %q", ErrNodeTerminal, i, n.Fate)
	}
	n.Fate = fate
	return nil
}

// LiveLeaves returns, in ascending arena order, the indices of nodes whose
// fate is still undecided. Ascending order keeps the runner's per-leaf
// random draws reproducible.
func (t *Tree) LiveLeaves() []int {
	var out []int
	for i := range t.nodes {
		if t.nodes[i].Fate == FateNone && len(t.nodes[i].Children) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Name encodes the node's lineage path: colony name, founding-cell ordinal,
// then one ".1" or ".2" segment per division, e.g. "1a-2.1.2". It is a pure
// function of tree position.
func (t *Tree) Name(i int) (string, error) {
	n, err := t.Node(i)
	if err != nil {
		return "", err
	}
	if n.Parent == -1 {
		ordinal := 0
		for r, root := range t.roots {
			if root == i {
				ordinal = r + 1
				break
			}
		}
		return t.colonyName + "-" + strconv.Itoa(ordinal), nil
	}
	parentName, err := t.Name(n.Parent)
	if err != nil {
		return "", err
	}
	for pos, child := range t.nodes[n.Parent].Children {
		if child == i {
			return parentName + "." + strconv.Itoa(pos+1), nil
		}
	}
	return "", fmt.Errorf("node %d not linked to its parent %d", i, n.Parent)
}

// BranchName is the founding-cell part of the node's name ("1a-2.1.2" ->
// "1a-2"), identifying the branch for downstream grouping.
func (t *Tree) BranchName(i int) (string, error) {
	name, err := t.Name(i)
	if err != nil {
		return "", err
	}
	for pos := 0; pos < len(name); pos++ {
		if name[pos] == '.' {
			return name[:pos], nil
		}
	}
	return name, nil
}
