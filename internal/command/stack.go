package command

import (
	"errors"
	"log/slog"

	"github.com/inamate/designkit/internal/document"
)

// DefaultHistoryLimit bounds the undo history when no limit is given.
const DefaultHistoryLimit = 200

type entry struct {
	cmd     Command
	inverse Command
}

// Stack records executed commands with their inverses. It stores commands,
// never documents; the caller owns the current document value.
type Stack struct {
	undo  []entry
	redo  []entry
	limit int
}

// NewStack returns a history that keeps at most limit undo steps.
func NewStack(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Stack{limit: limit}
}

// Execute applies cmd to doc, records it and clears the redo history. On
// error doc is returned unchanged and nothing is recorded; a missing layer
// reference is logged and treated as a no-op.
func (s *Stack) Execute(doc document.Document, cmd Command) (document.Document, error) {
	next, inverse, err := cmd.Execute(doc)
	if err != nil {
		logDropped("execute", cmd, err)
		return doc, err
	}
	s.undo = append(s.undo, entry{cmd: cmd, inverse: inverse})
	if len(s.undo) > s.limit {
		s.undo = s.undo[len(s.undo)-s.limit:]
	}
	clear(s.redo)
	s.redo = s.redo[:0]
	return next.PruneSelection(), nil
}

// Undo applies the inverse of the most recent command. The second result is
// false when there was nothing to undo.
func (s *Stack) Undo(doc document.Document) (document.Document, bool, error) {
	if len(s.undo) == 0 {
		return doc, false, nil
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]

	next, _, err := e.inverse.Execute(doc)
	if err != nil {
		logDropped("undo", e.cmd, err)
		return doc, true, err
	}
	s.redo = append(s.redo, e)
	return next.PruneSelection(), true, nil
}

// Redo re-executes the most recently undone command.
func (s *Stack) Redo(doc document.Document) (document.Document, bool, error) {
	if len(s.redo) == 0 {
		return doc, false, nil
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]

	next, inverse, err := e.cmd.Execute(doc)
	if err != nil {
		logDropped("redo", e.cmd, err)
		return doc, true, err
	}
	s.undo = append(s.undo, entry{cmd: e.cmd, inverse: inverse})
	return next.PruneSelection(), true, nil
}

func logDropped(op string, cmd Command, err error) {
	if errors.Is(err, document.ErrReferenceMissing) {
		slog.Warn("command dropped", "op", op, "command", cmd.Label(), "error", err)
		return
	}
	slog.Error("command failed", "op", op, "command", cmd.Label(), "error", err)
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// UndoLabel names the step Undo would revert.
func (s *Stack) UndoLabel() string {
	if len(s.undo) == 0 {
		return ""
	}
	return s.undo[len(s.undo)-1].cmd.Label()
}

// RedoLabel names the step Redo would reapply.
func (s *Stack) RedoLabel() string {
	if len(s.redo) == 0 {
		return ""
	}
	return s.redo[len(s.redo)-1].cmd.Label()
}

// Len returns the number of undo steps.
func (s *Stack) Len() int { return len(s.undo) }

// Clear drops all history.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}
