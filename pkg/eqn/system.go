package eqn

import (
	"fmt"
	"slices"
)

// Node is a member of a system's subsystem list: either a [Block] or a nested
// [*System]. The pipeline flattens nested systems bottom-up before folding
// them into their parent.
type Node interface {
	// NodeName returns the member's name, which scopes its promoted symbols.
	NodeName() string
}

// NodeName implements [Node].
func (b Block) NodeName() string { return b.Name }

// Connection wires one subsystem's declared input to another's output:
// after promotion, every occurrence of Input is driven by Output's defining
// expression.
type Connection struct {
	Input  string
	Output string
}

// System is a composition description: an ordered list of subsystems,
// connection wiring, and a namespace map renaming promoted symbols to the
// parent's convention. A System holds no equations of its own; it becomes a
// Block only when flattened by the pipeline.
type System struct {
	Name        string
	Subsystems  []Node
	Connections []Connection
	Namespace   map[string]string // promoted symbol -> parent-scope symbol
}

// NodeName implements [Node].
func (s *System) NodeName() string { return s.Name }

// NewSystem validates and constructs a System.
//
// Direct subsystem names must be unique ([ErrDuplicateSubsystem]), and no
// system value may contain itself directly or transitively
// ([ErrSubsystemCycle]) — the containment structure must be a tree. Blocks
// are values and cannot form cycles; only nested *System pointers are
// checked.
func NewSystem(name string, subsystems []Node, connections []Connection, namespace map[string]string) (*System, error) {
	seen := make(map[string]struct{}, len(subsystems))
	for _, sub := range subsystems {
		n := sub.NodeName()
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("system %q: subsystem %q: %w", name, n, ErrDuplicateSubsystem)
		}
		seen[n] = struct{}{}
	}

	s := &System{
		Name:        name,
		Subsystems:  slices.Clone(subsystems),
		Connections: slices.Clone(connections),
		Namespace:   namespace,
	}
	if err := checkContainment(s, map[*System]struct{}{}); err != nil {
		return nil, err
	}
	return s, nil
}

// checkContainment walks the subsystem tree rejecting repeated *System values
// on a single path, which would make flattening recurse forever.
func checkContainment(s *System, path map[*System]struct{}) error {
	if _, onPath := path[s]; onPath {
		return fmt.Errorf("system %q: %w", s.Name, ErrSubsystemCycle)
	}
	path[s] = struct{}{}
	defer delete(path, s)
	for _, sub := range s.Subsystems {
		if nested, ok := sub.(*System); ok {
			if err := checkContainment(nested, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// Depth returns the nesting depth of the system tree: 1 for a system of
// blocks only.
func (s *System) Depth() int {
	depth := 1
	for _, sub := range s.Subsystems {
		if nested, ok := sub.(*System); ok {
			if d := nested.Depth() + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}
