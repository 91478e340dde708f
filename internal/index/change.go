package index

import (
	"fmt"
	"strings"
)

// ChangeChannel is the PostgreSQL notification channel of index changes.
const ChangeChannel = "rbxref_changes"

// ChangeOp is the kind of an index change.
type ChangeOp string

const (
	ChangeSave   ChangeOp = "save"   // whole index replaced; Path holds the run id
	ChangePut    ChangeOp = "put"    // one file added or replaced
	ChangeDelete ChangeOp = "delete" // one file removed
)

// Change describes one committed index modification.
type Change struct {
	Op   ChangeOp
	Path string
}

// String encodes c as a notification payload.
func (c Change) String() string {
	return string(c.Op) + ":" + c.Path
}

// ParseChange decodes a notification payload.
func ParseChange(payload string) (Change, error) {
	op, path, ok := strings.Cut(payload, ":")
	switch c := (Change{Op: ChangeOp(op), Path: path}); {
	case !ok:
		return Change{}, fmt.Errorf("malformed change payload %q", payload)
	case c.Op == ChangeSave, c.Op == ChangePut, c.Op == ChangeDelete:
		return c, nil
	default:
		return Change{}, fmt.Errorf("unknown change %q", op)
	}
}
