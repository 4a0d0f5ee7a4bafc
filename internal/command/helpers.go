package command

import (
	"fmt"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
)

// TopLevel keeps the ids whose ancestors are not also listed, preserving
// order. Missing ids and duplicates are dropped.
func TopLevel(doc document.Document, ids []document.LayerID) []document.LayerID {
	listed := make(map[document.LayerID]bool, len(ids))
	for _, id := range ids {
		if id != doc.Root() {
			listed[id] = true
		}
	}
	var out []document.LayerID
	seen := make(map[document.LayerID]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !doc.Has(id) || id == doc.Root() {
			continue
		}
		seen[id] = true
		covered := false
		for p, ok := doc.Parent(id); ok; p, ok = doc.Parent(p) {
			if listed[p] {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, id)
		}
	}
	return out
}

// NewTranslate moves each layer by a world-space delta as one document
// step. Returns nil when nothing would move.
func NewTranslate(doc document.Document, ids []document.LayerID, delta geom.Point, label string) Command {
	if delta == (geom.Point{}) {
		return nil
	}
	var updates []*Update
	for _, id := range TopLevel(doc, ids) {
		l, _ := doc.Layer(id)
		pos := l.Transform.Position.Add(doc.LocalDelta(id, delta))
		updates = append(updates, NewUpdate(id, document.MovePatch(pos), label))
	}
	if len(updates) == 0 {
		return nil
	}
	return &UpdateSet{Name: label, Updates: updates}
}

// NewRemoveSelection deletes every selected layer. Returns nil when the
// selection is empty.
func NewRemoveSelection(doc document.Document) Command {
	ids := TopLevel(doc, doc.Selection())
	if len(ids) == 0 {
		return nil
	}
	cmds := make([]Command, len(ids))
	for i, id := range ids {
		cmds[i] = &Remove{ID: id}
	}
	return &Batch{Name: deleteLabel(len(ids)), Commands: cmds}
}

func deleteLabel(n int) string {
	if n == 1 {
		return "Delete layer"
	}
	return fmt.Sprintf("Delete %d layers", n)
}

// NewDuplicate copies the given layers with fresh ids, places each copy
// directly above its original offset by delta, and selects the copies.
// Returns nil when no listed layer exists.
func NewDuplicate(doc document.Document, ids []document.LayerID, delta geom.Point) Command {
	var (
		cmds   []Command
		copies []document.LayerID
	)
	for _, id := range TopLevel(doc, ids) {
		n, _ := doc.Extract(id)
		dup := n.Remap(func(document.LayerID) document.LayerID { return document.NewID() })
		dup.Layer.Name = n.Layer.Name + " copy"
		dup.Layer.Transform.Position = dup.Layer.Transform.Position.Add(doc.LocalDelta(id, delta))
		cmds = append(cmds, &Insert{Above: id, Node: dup})
		copies = append(copies, dup.Layer.ID)
	}
	if len(cmds) == 0 {
		return nil
	}
	cmds = append(cmds, &Select{IDs: copies})
	return &Batch{Name: "Duplicate", Commands: cmds}
}

// NewPaste inserts clipboard subtrees with fresh ids at the top of parent
// and selects them.
func NewPaste(parent document.LayerID, nodes []document.Node, delta geom.Point) Command {
	if len(nodes) == 0 {
		return nil
	}
	var (
		cmds  []Command
		added []document.LayerID
	)
	for _, n := range nodes {
		dup := n.Remap(func(document.LayerID) document.LayerID { return document.NewID() })
		dup.Layer.Transform.Position = dup.Layer.Transform.Position.Add(delta)
		cmds = append(cmds, &Insert{Parent: parent, Index: -1, Node: dup})
		added = append(added, dup.Layer.ID)
	}
	cmds = append(cmds, &Select{IDs: added})
	return &Batch{Name: "Paste", Commands: cmds}
}
