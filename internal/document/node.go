package document

// Node is a detached layer subtree, used to insert, remove and copy whole
// branches.
type Node struct {
	Layer    Layer  `json:"layer"`
	Children []Node `json:"children,omitempty"`
}

// Clone returns a deep copy.
func (n Node) Clone() Node {
	out := Node{Layer: n.Layer.Clone()}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// IDs returns every layer id in the subtree, parent before children.
func (n Node) IDs() []LayerID {
	ids := []LayerID{n.Layer.ID}
	for _, c := range n.Children {
		ids = append(ids, c.IDs()...)
	}
	return ids
}

// Remap returns a copy whose layer ids are replaced by newID. newID is called
// once per layer in IDs order.
func (n Node) Remap(newID func(old LayerID) LayerID) Node {
	out := Node{Layer: n.Layer.Clone()}
	out.Layer.ID = newID(n.Layer.ID)
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Remap(newID)
		}
	}
	return out
}
