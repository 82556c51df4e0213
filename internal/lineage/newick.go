package lineage

import (
	"strconv"
	"strings"
)

// Newick serializes the subtree under root in parenthetical tree notation,
// one statement terminated by ";". Per-node attributes travel as NHX
// decorations so external lineage viewers can pick them up.
func (t *Tree) Newick(root int) (string, error) {
	if _, err := t.Node(root); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.writeNewick(&b, root); err != nil {
		return "", err
	}
	b.WriteByte(';')
	return b.String(), nil
}

// NewickAll serializes every root of the colony, one statement per line.
func (t *Tree) NewickAll() (string, error) {
	lines := make([]string, 0, len(t.roots))
	for _, root := range t.roots {
		line, err := t.Newick(root)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (t *Tree) writeNewick(b *strings.Builder, i int) error {
	n := &t.nodes[i]
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for pos, child := range n.Children {
			if pos > 0 {
				b.WriteByte(',')
			}
			if err := t.writeNewick(b, child); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	}
	name, err := t.Name(i)
	if err != nil {
		return err
	}
	b.WriteString(name)
	// Branch length is the node's lifetime in hours.
	b.WriteByte(':')
	b.WriteString(formatFloat(float64(n.SecondsSinceBirth) / 3600))
	b.WriteString("[&&NHX")
	writeNHX(b, "generation", strconv.Itoa(n.Generation))
	writeNHX(b, "x", formatFloat(n.Disc.X))
	writeNHX(b, "y", formatFloat(n.Disc.Y))
	writeNHX(b, "radius", formatFloat(n.Disc.Radius()))
	writeNHX(b, "signal_value", formatFloat(n.Signal.Value))
	writeNHX(b, "fitness_memory", formatFloat(n.Fitness.Memory))
	writeNHX(b, "seconds_since_birth", strconv.Itoa(n.SecondsSinceBirth))
	writeNHX(b, "fate", string(n.Fate))
	writeNHX(b, "treatment", n.TreatmentName)
	b.WriteByte(']')
	return nil
}

func writeNHX(b *strings.Builder, key, value string) {
	b.WriteByte(':')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
