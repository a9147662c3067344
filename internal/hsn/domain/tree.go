package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PathSeparator joins codes in FullPath.
const PathSeparator = " > "

// Tree is an immutable snapshot of the classification forest. Nodes live in
// an arena keyed by ID; parents are looked up, never owned.
//
// Bad rows do not poison the snapshot. A node whose own chain is broken is
// recorded in broken and rejected on lookup; every other code stays usable.
type Tree struct {
	nodes    map[snowflake.ID]ClassificationCode
	byCode   map[string]snowflake.ID
	broken   map[snowflake.ID]error
	problems []error
}

// NewTree indexes codes and checks every node: its parent must resolve, the
// chain must be acyclic, and Level must equal the distance to the root plus one.
// Rows with blank text or a repeated ID are skipped. A repeated code marks the
// first holder as broken, since lookups by that code would be ambiguous.
func NewTree(codes []ClassificationCode) *Tree {
	t := &Tree{
		nodes:  make(map[snowflake.ID]ClassificationCode, len(codes)),
		byCode: make(map[string]snowflake.ID, len(codes)),
		broken: make(map[snowflake.ID]error),
	}

	for _, c := range codes {
		code := strings.TrimSpace(c.Code)
		if code == "" {
			t.problems = append(t.problems, fmt.Errorf("%w: id %s", ErrInvalidCodeText, c.ID))
			continue
		}
		if _, dup := t.nodes[c.ID]; dup {
			t.problems = append(t.problems, fmt.Errorf("%w: %s", ErrDuplicateID, c.ID))
			continue
		}
		if first, dup := t.byCode[code]; dup {
			t.markBroken(first, fmt.Errorf("%w: %s", ErrDuplicateCode, code))
			continue
		}
		c.Code = code
		t.nodes[c.ID] = c
		t.byCode[code] = c.ID
	}

	for _, c := range t.nodes {
		depth, err := t.depth(c)
		if err != nil {
			t.markBroken(c.ID, err)
			continue
		}
		if c.Level != depth {
			t.markBroken(c.ID, fmt.Errorf("%w: %s has level %d, expected %d", ErrLevelMismatch, c.Code, c.Level, depth))
		}
	}
	return t
}

func (t *Tree) markBroken(id snowflake.ID, err error) {
	if _, seen := t.broken[id]; !seen {
		t.broken[id] = err
	}
	t.problems = append(t.problems, err)
}

// depth walks to the root, detecting dangling parents and cycles.
func (t *Tree) depth(c ClassificationCode) (int, error) {
	seen := map[snowflake.ID]struct{}{c.ID: {}}
	depth := 1
	current := c
	for current.ParentID != nil {
		parent, ok := t.nodes[*current.ParentID]
		if !ok {
			return 0, fmt.Errorf("%w: %s points at missing parent %s", ErrBrokenParent, current.Code, *current.ParentID)
		}
		if _, loop := seen[parent.ID]; loop {
			return 0, fmt.Errorf("%w: through %s", ErrCycle, c.Code)
		}
		seen[parent.ID] = struct{}{}
		depth++
		current = parent
	}
	return depth, nil
}

func (t *Tree) Len() int { return len(t.nodes) }

// Problems lists every integrity error found while building the tree.
func (t *Tree) Problems() []error { return t.problems }

// Lookup returns the node for code, whether or not its chain is intact.
func (t *Tree) Lookup(code string) (ClassificationCode, bool) {
	id, ok := t.byCode[strings.TrimSpace(code)]
	if !ok {
		return ClassificationCode{}, false
	}
	return t.nodes[id], true
}

// node returns the node for code once it and all its ancestors are intact.
func (t *Tree) node(code string) (ClassificationCode, error) {
	node, ok := t.Lookup(code)
	if !ok {
		return ClassificationCode{}, fmt.Errorf("%w: %s", ErrCodeNotFound, code)
	}
	// a node on a cycle is itself broken, so this walk terminates
	for current := node; ; {
		if err, bad := t.broken[current.ID]; bad {
			return ClassificationCode{}, err
		}
		if current.ParentID == nil {
			return node, nil
		}
		current = t.nodes[*current.ParentID]
	}
}

// ResolvePath returns the codes from the root down to code, inclusive.
func (t *Tree) ResolvePath(code string) ([]string, error) {
	node, err := t.node(code)
	if err != nil {
		return nil, err
	}

	path := make([]string, node.Level)
	for i := node.Level - 1; i >= 0; i-- {
		path[i] = node.Code
		if node.ParentID == nil {
			break
		}
		node = t.nodes[*node.ParentID]
	}
	return path, nil
}

// FullPath renders ResolvePath for display, e.g. "25 > 2523".
func (t *Tree) FullPath(code string) (string, error) {
	path, err := t.ResolvePath(code)
	if err != nil {
		return "", err
	}
	return strings.Join(path, PathSeparator), nil
}

// IsDescendantOf reports whether a sits strictly below b.
func (t *Tree) IsDescendantOf(a, b string) (bool, error) {
	node, err := t.node(a)
	if err != nil {
		return false, err
	}
	ancestor, ok := t.Lookup(b)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrCodeNotFound, b)
	}

	for node.ParentID != nil {
		if *node.ParentID == ancestor.ID {
			return true, nil
		}
		node = t.nodes[*node.ParentID]
	}
	return false, nil
}

// Require returns the node for code when its chain is intact and it is valid at asOf.
func (t *Tree) Require(code string, asOf time.Time) (ClassificationCode, error) {
	node, err := t.node(code)
	if err != nil {
		return ClassificationCode{}, err
	}
	if !node.IsValidFor(asOf) {
		return ClassificationCode{}, fmt.Errorf("%w: %s at %s", ErrCodeInactive, code, asOf.Format(time.DateOnly))
	}
	return node, nil
}
