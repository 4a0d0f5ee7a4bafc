// Package command holds the reversible document mutations and the undo
// history that records them.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/inamate/designkit/internal/document"
)

// Command is a reversible mutation. Execute returns the new document and a
// command that turns it back into the input document. Commands never modify
// the document they receive.
type Command interface {
	Label() string
	Execute(doc document.Document) (document.Document, Command, error)
}

// withSelectionRestore extends inverse so it also restores the selection of
// before when the command changed it.
func withSelectionRestore(before, after document.Document, inverse Command) Command {
	if slices.Equal(before.Selection(), after.Selection()) {
		return inverse
	}
	return &Batch{Name: inverse.Label(), Commands: []Command{inverse, &Select{IDs: before.Selection()}}}
}

// Insert adds a layer subtree. When Above is set the subtree goes directly
// above that layer in its parent and Parent/Index are ignored.
type Insert struct {
	Parent document.LayerID
	Index  int
	Above  document.LayerID
	Node   document.Node
	Name   string
}

func (c *Insert) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return "Add " + c.Node.Layer.Name
}

func (c *Insert) Execute(doc document.Document) (document.Document, Command, error) {
	parent, index := c.Parent, c.Index
	if c.Above != "" {
		p, ok := doc.Parent(c.Above)
		if !ok {
			return doc, nil, fmt.Errorf("%w: %s", document.ErrReferenceMissing, c.Above)
		}
		parent, index = p, doc.IndexOf(c.Above)+1
	}
	next, err := doc.Insert(parent, index, c.Node)
	if err != nil {
		return doc, nil, fmt.Errorf("insert %s: %w", c.Node.Layer.ID, err)
	}
	return next, &Remove{ID: c.Node.Layer.ID, Name: c.Label()}, nil
}

// Remove deletes a layer subtree and drops it from the selection.
type Remove struct {
	ID   document.LayerID
	Name string
}

func (c *Remove) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return "Delete"
}

func (c *Remove) Execute(doc document.Document) (document.Document, Command, error) {
	next, node, parent, index, err := doc.Remove(c.ID)
	if err != nil {
		return doc, nil, fmt.Errorf("remove %s: %w", c.ID, err)
	}
	inverse := &Insert{Parent: parent, Index: index, Node: node, Name: c.Label()}
	return next, withSelectionRestore(doc, next, inverse), nil
}

// Update writes a partial layer. Its inverse holds the previous values of
// exactly the fields the patch touches.
type Update struct {
	ID    document.LayerID
	Patch document.Patch
	Name  string
}

// NewUpdate builds the command panels submit for a property edit.
func NewUpdate(id document.LayerID, patch document.Patch, label string) *Update {
	return &Update{ID: id, Patch: patch, Name: label}
}

func (c *Update) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return "Edit"
}

func (c *Update) Execute(doc document.Document) (document.Document, Command, error) {
	l, ok := doc.Layer(c.ID)
	if !ok {
		return doc, nil, fmt.Errorf("update %s: %w", c.ID, document.ErrReferenceMissing)
	}
	next, err := doc.WithLayer(c.Patch.Apply(l))
	if err != nil {
		return doc, nil, fmt.Errorf("update %s: %w", c.ID, err)
	}
	return next, &Update{ID: c.ID, Patch: c.Patch.Capture(l), Name: c.Name}, nil
}

// UpdateSet applies several updates as one document step, copying the
// arena once however many layers it touches. Members addressing a missing
// layer are skipped.
type UpdateSet struct {
	Name    string
	Updates []*Update
}

func (c *UpdateSet) Label() string { return c.Name }

func (c *UpdateSet) Execute(doc document.Document) (document.Document, Command, error) {
	var (
		order   []document.LayerID
		working = make(map[document.LayerID]document.Layer, len(c.Updates))
		inverse = make([]*Update, 0, len(c.Updates))
	)
	for _, u := range c.Updates {
		l, ok := working[u.ID]
		if !ok {
			if l, ok = doc.Layer(u.ID); !ok {
				slog.Debug("update skipped", "command", c.Name, "layer", u.ID)
				continue
			}
			order = append(order, u.ID)
		}
		inverse = append(inverse, &Update{ID: u.ID, Patch: u.Patch.Capture(l), Name: u.Name})
		working[u.ID] = u.Patch.Apply(l)
	}
	if len(order) == 0 && len(c.Updates) > 0 {
		return doc, nil, fmt.Errorf("%s: %w", c.Name, document.ErrReferenceMissing)
	}
	ls := make([]document.Layer, len(order))
	for i, id := range order {
		ls[i] = working[id]
	}
	next, err := doc.WithLayers(ls)
	if err != nil {
		return doc, nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	slices.Reverse(inverse)
	return next, &UpdateSet{Name: c.Name, Updates: inverse}, nil
}

// Move reparents or reorders a layer. Index is the position in the target
// list once the layer has left its current one.
type Move struct {
	ID     document.LayerID
	Parent document.LayerID
	Index  int
	Name   string
}

func (c *Move) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return "Reorder"
}

func (c *Move) Execute(doc document.Document) (document.Document, Command, error) {
	oldParent, ok := doc.Parent(c.ID)
	if !ok {
		return doc, nil, fmt.Errorf("move %s: %w", c.ID, document.ErrReferenceMissing)
	}
	oldIndex := doc.IndexOf(c.ID)
	next, err := doc.Move(c.ID, c.Parent, c.Index)
	if err != nil {
		return doc, nil, fmt.Errorf("move %s: %w", c.ID, err)
	}
	return next, &Move{ID: c.ID, Parent: oldParent, Index: oldIndex, Name: c.Name}, nil
}

// Select replaces the selection. Ids that no longer exist are dropped.
type Select struct {
	IDs []document.LayerID
}

func (c *Select) Label() string { return "Select" }

func (c *Select) Execute(doc document.Document) (document.Document, Command, error) {
	return doc.WithSelection(c.IDs), &Select{IDs: doc.Selection()}, nil
}

// Batch runs commands in order as one undo step. Members that address a
// missing layer are skipped; any other failure aborts the whole batch and
// leaves the document unchanged.
type Batch struct {
	Name     string
	Commands []Command
}

func (c *Batch) Label() string { return c.Name }

func (c *Batch) Execute(doc document.Document) (document.Document, Command, error) {
	cur := doc
	inverses := make([]Command, 0, len(c.Commands))
	skipped := 0
	for _, sub := range c.Commands {
		next, inv, err := sub.Execute(cur)
		if errors.Is(err, document.ErrReferenceMissing) {
			slog.Debug("batch member skipped", "batch", c.Name, "command", sub.Label(), "error", err)
			skipped++
			continue
		}
		if err != nil {
			return doc, nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		cur = next
		inverses = append(inverses, inv)
	}
	if skipped > 0 && skipped == len(c.Commands) {
		return doc, nil, fmt.Errorf("%s: %w", c.Name, document.ErrReferenceMissing)
	}
	slices.Reverse(inverses)
	return cur, &Batch{Name: c.Name, Commands: inverses}, nil
}
