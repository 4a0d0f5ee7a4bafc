package document

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Document is an immutable layer tree. Layers live in a flat arena keyed by
// id; children lists hold z-order (first child paints first). Every method
// that changes the tree returns a new Document and leaves the receiver
// untouched.
type Document struct {
	root      LayerID
	layers    map[LayerID]Layer
	children  map[LayerID][]LayerID
	parent    map[LayerID]LayerID
	selection []LayerID
}

// New returns a document holding only the root layer, which must be a
// container (normally a frame acting as the artboard).
func New(root Layer) (Document, error) {
	if err := root.Validate(); err != nil {
		return Document{}, err
	}
	if !root.Kind().IsContainer() {
		return Document{}, fmt.Errorf("%w: root layer must be a container, got %s", ErrInvalidDocument, root.Kind())
	}
	root = root.Clone().normalize()
	return Document{
		root:     root.ID,
		layers:   map[LayerID]Layer{root.ID: root},
		children: map[LayerID][]LayerID{},
		parent:   map[LayerID]LayerID{},
	}, nil
}

// Root returns the artboard id.
func (d Document) Root() LayerID { return d.root }

// Len returns the number of layers including the root.
func (d Document) Len() int { return len(d.layers) }

// Has reports whether id names a layer.
func (d Document) Has(id LayerID) bool {
	_, ok := d.layers[id]
	return ok
}

// Layer returns a copy of the layer.
func (d Document) Layer(id LayerID) (Layer, bool) {
	l, ok := d.layers[id]
	if !ok {
		return Layer{}, false
	}
	return l.Clone(), true
}

// Children returns the child ids of id in z-order.
func (d Document) Children(id LayerID) []LayerID {
	return slices.Clone(d.children[id])
}

// Parent returns the parent id. The root has none.
func (d Document) Parent(id LayerID) (LayerID, bool) {
	p, ok := d.parent[id]
	return p, ok
}

// IndexOf returns the position of id within its parent, or -1.
func (d Document) IndexOf(id LayerID) int {
	p, ok := d.parent[id]
	if !ok {
		return -1
	}
	return slices.Index(d.children[p], id)
}

// Selection returns the selected ids in selection order.
func (d Document) Selection() []LayerID {
	return slices.Clone(d.selection)
}

func (d Document) IsSelected(id LayerID) bool {
	return slices.Contains(d.selection, id)
}

// IsAncestor reports whether anc is a strict ancestor of id.
func (d Document) IsAncestor(anc, id LayerID) bool {
	for {
		p, ok := d.parent[id]
		if !ok {
			return false
		}
		if p == anc {
			return true
		}
		id = p
	}
}

// Ancestors returns the ancestors of id, nearest first, root last.
func (d Document) Ancestors(id LayerID) []LayerID {
	var out []LayerID
	for {
		p, ok := d.parent[id]
		if !ok {
			return out
		}
		out = append(out, p)
		id = p
	}
}

// EffectivelyVisible reports whether the layer and all its ancestors are
// visible.
func (d Document) EffectivelyVisible(id LayerID) bool {
	l, ok := d.layers[id]
	if !ok || !l.Visible {
		return false
	}
	for _, a := range d.Ancestors(id) {
		if !d.layers[a].Visible {
			return false
		}
	}
	return true
}

// EffectivelyLocked reports whether the layer or any non-root ancestor is
// locked.
func (d Document) EffectivelyLocked(id LayerID) bool {
	if d.layers[id].Locked {
		return true
	}
	for _, a := range d.Ancestors(id) {
		if a != d.root && d.layers[a].Locked {
			return true
		}
	}
	return false
}

func (d Document) clone() Document {
	return Document{
		root:      d.root,
		layers:    maps.Clone(d.layers),
		children:  maps.Clone(d.children),
		parent:    maps.Clone(d.parent),
		selection: slices.Clone(d.selection),
	}
}

// WithLayer replaces a stored layer by id.
func (d Document) WithLayer(l Layer) (Document, error) {
	return d.WithLayers([]Layer{l})
}

// WithLayers replaces several stored layers in one step. The tree shape is
// unchanged, so only the layer arena is copied. A later entry for the same
// id wins.
func (d Document) WithLayers(ls []Layer) (Document, error) {
	for _, l := range ls {
		if _, ok := d.layers[l.ID]; !ok {
			return d, fmt.Errorf("%w: %s", ErrReferenceMissing, l.ID)
		}
		if err := l.Validate(); err != nil {
			return d, err
		}
		if !l.Kind().IsContainer() && (len(d.children[l.ID]) > 0 || l.ID == d.root) {
			return d, fmt.Errorf("%w: layer %s has children and cannot become %s", ErrInvalidDocument, l.ID, l.Kind())
		}
	}
	out := d
	out.layers = maps.Clone(d.layers)
	out.selection = slices.Clone(d.selection)
	for _, l := range ls {
		out.layers[l.ID] = l.Clone().normalize()
	}
	return out, nil
}

// Insert adds a subtree under parent at index. An index outside the child
// list appends. Every id in the subtree must be new to the document.
func (d Document) Insert(parent LayerID, index int, n Node) (Document, error) {
	pl, ok := d.layers[parent]
	if !ok {
		return d, fmt.Errorf("%w: parent %s", ErrReferenceMissing, parent)
	}
	if !pl.Kind().IsContainer() {
		return d, fmt.Errorf("%w: %s layer %s cannot have children", ErrInvalidDocument, pl.Kind(), parent)
	}
	seen := map[LayerID]bool{}
	for _, id := range n.IDs() {
		if d.Has(id) || seen[id] {
			return d, fmt.Errorf("%w: duplicate layer id %s", ErrInvalidDocument, id)
		}
		seen[id] = true
	}
	out := d.clone()
	if err := out.attach(n); err != nil {
		return d, err
	}
	siblings := out.children[parent]
	if index < 0 || index > len(siblings) {
		index = len(siblings)
	}
	out.children[parent] = slices.Insert(slices.Clone(siblings), index, n.Layer.ID)
	out.parent[n.Layer.ID] = parent
	return out, nil
}

// attach stores a subtree into the arena of a cloned document.
func (d *Document) attach(n Node) error {
	if err := n.Layer.Validate(); err != nil {
		return err
	}
	if len(n.Children) > 0 && !n.Layer.Kind().IsContainer() {
		return fmt.Errorf("%w: %s layer %s cannot have children", ErrInvalidDocument, n.Layer.Kind(), n.Layer.ID)
	}
	d.layers[n.Layer.ID] = n.Layer.Clone().normalize()
	if len(n.Children) == 0 {
		return nil
	}
	ids := make([]LayerID, len(n.Children))
	for i, c := range n.Children {
		if err := d.attach(c); err != nil {
			return err
		}
		ids[i] = c.Layer.ID
		d.parent[c.Layer.ID] = n.Layer.ID
	}
	d.children[n.Layer.ID] = ids
	return nil
}

// Extract returns a detached copy of the subtree rooted at id.
func (d Document) Extract(id LayerID) (Node, bool) {
	l, ok := d.layers[id]
	if !ok {
		return Node{}, false
	}
	n := Node{Layer: l.Clone()}
	for _, c := range d.children[id] {
		cn, _ := d.Extract(c)
		n.Children = append(n.Children, cn)
	}
	return n, true
}

// Remove deletes the subtree rooted at id and purges it from the selection.
// It returns the removed subtree with its former parent and index so the
// removal can be reverted.
func (d Document) Remove(id LayerID) (Document, Node, LayerID, int, error) {
	if id == d.root {
		return d, Node{}, "", -1, fmt.Errorf("%w: the root layer cannot be removed", ErrInvalidDocument)
	}
	n, ok := d.Extract(id)
	if !ok {
		return d, Node{}, "", -1, fmt.Errorf("%w: %s", ErrReferenceMissing, id)
	}
	parent := d.parent[id]
	index := d.IndexOf(id)

	out := d.clone()
	gone := n.IDs()
	for _, g := range gone {
		delete(out.layers, g)
		delete(out.children, g)
		delete(out.parent, g)
	}
	out.children[parent] = slices.Delete(slices.Clone(out.children[parent]), index, index+1)
	out.selection = slices.DeleteFunc(out.selection, func(s LayerID) bool {
		return slices.Contains(gone, s)
	})
	return out, n, parent, index, nil
}

// Move reparents or reorders id. The index is taken in the target list after
// id has been taken out of its current list; out of range appends.
func (d Document) Move(id, parent LayerID, index int) (Document, error) {
	if id == d.root {
		return d, fmt.Errorf("%w: the root layer cannot be moved", ErrInvalidDocument)
	}
	if !d.Has(id) {
		return d, fmt.Errorf("%w: %s", ErrReferenceMissing, id)
	}
	pl, ok := d.layers[parent]
	if !ok {
		return d, fmt.Errorf("%w: parent %s", ErrReferenceMissing, parent)
	}
	if parent == id || d.IsAncestor(id, parent) {
		return d, fmt.Errorf("%w: %s into %s", ErrCycle, id, parent)
	}
	if !pl.Kind().IsContainer() {
		return d, fmt.Errorf("%w: %s layer %s cannot have children", ErrInvalidDocument, pl.Kind(), parent)
	}
	out := d.clone()
	old := d.parent[id]
	out.children[old] = slices.DeleteFunc(slices.Clone(out.children[old]), func(c LayerID) bool { return c == id })
	siblings := out.children[parent]
	if index < 0 || index > len(siblings) {
		index = len(siblings)
	}
	out.children[parent] = slices.Insert(slices.Clone(siblings), index, id)
	out.parent[id] = parent
	return out, nil
}

// WithSelection sets the selection. Missing ids, the root and duplicates
// are dropped.
func (d Document) WithSelection(ids []LayerID) Document {
	out := d.clone()
	out.selection = out.filterSelection(ids)
	return out
}

// PruneSelection drops selected ids that no longer exist.
func (d Document) PruneSelection() Document {
	sel := d.filterSelection(d.selection)
	if len(sel) == len(d.selection) {
		return d
	}
	out := d.clone()
	out.selection = sel
	return out
}

func (d Document) filterSelection(ids []LayerID) []LayerID {
	var out []LayerID
	for _, id := range ids {
		if id == d.root || !d.Has(id) || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Equal compares two documents by value.
func (d Document) Equal(o Document) bool {
	if d.root != o.root || len(d.layers) != len(o.layers) {
		return false
	}
	if !slices.Equal(d.selection, o.selection) {
		return false
	}
	for id, l := range d.layers {
		ol, ok := o.layers[id]
		if !ok || !reflect.DeepEqual(l, ol) {
			return false
		}
		if !slices.Equal(d.children[id], o.children[id]) {
			return false
		}
		if d.parent[id] != o.parent[id] {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of the tree and every layer.
func (d Document) Validate() error {
	root, ok := d.layers[d.root]
	if !ok {
		return fmt.Errorf("%w: missing root %q", ErrInvalidDocument, d.root)
	}
	if !root.Kind().IsContainer() {
		return fmt.Errorf("%w: root is a %s", ErrInvalidDocument, root.Kind())
	}
	seen := map[LayerID]bool{d.root: true}
	var visit func(id LayerID) error
	visit = func(id LayerID) error {
		kids := d.children[id]
		if len(kids) > 0 && !d.layers[id].Kind().IsContainer() {
			return fmt.Errorf("%w: %s layer %s has children", ErrInvalidDocument, d.layers[id].Kind(), id)
		}
		for _, c := range kids {
			if _, ok := d.layers[c]; !ok {
				return fmt.Errorf("%w: child %s of %s", ErrReferenceMissing, c, id)
			}
			if seen[c] {
				return fmt.Errorf("%w: %s appears twice", ErrInvalidDocument, c)
			}
			if d.parent[c] != id {
				return fmt.Errorf("%w: parent of %s is not %s", ErrInvalidDocument, c, id)
			}
			seen[c] = true
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(d.root); err != nil {
		return err
	}
	if len(seen) != len(d.layers) {
		return fmt.Errorf("%w: %d layers unreachable from the root", ErrInvalidDocument, len(d.layers)-len(seen))
	}
	for id, l := range d.layers {
		if l.ID != id {
			return fmt.Errorf("%w: layer stored under %s has id %s", ErrInvalidDocument, id, l.ID)
		}
		if err := l.Validate(); err != nil {
			return err
		}
	}
	for i, s := range d.selection {
		if s == d.root || !d.Has(s) || slices.Index(d.selection, s) != i {
			return fmt.Errorf("%w: invalid selection entry %s", ErrInvalidDocument, s)
		}
	}
	return nil
}
