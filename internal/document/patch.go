package document

import (
	"slices"

	"github.com/inamate/designkit/internal/geom"
)

// Patch is a partial layer: nil fields are left untouched.
type Patch struct {
	Name        *string      `json:"name,omitempty"`
	Visible     *bool        `json:"visible,omitempty"`
	Locked      *bool        `json:"locked,omitempty"`
	Opacity     *float64     `json:"opacity,omitempty"`
	BlendMode   *BlendMode   `json:"blendMode,omitempty"`
	Position    *geom.Point  `json:"position,omitempty"`
	Size        *geom.Point  `json:"size,omitempty"`
	Rotation    *float64     `json:"rotation,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Effects     *Effects     `json:"effects,omitempty"`
	Tags        *[]string    `json:"tags,omitempty"`
	Content     Content      `json:"-"`
}

// IsEmpty reports whether the patch touches nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Visible == nil && p.Locked == nil &&
		p.Opacity == nil && p.BlendMode == nil && p.Position == nil &&
		p.Size == nil && p.Rotation == nil && p.Constraints == nil &&
		p.Effects == nil && p.Tags == nil && p.Content == nil
}

// Apply returns l with the patch's fields written over it.
func (p Patch) Apply(l Layer) Layer {
	l = l.Clone()
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Visible != nil {
		l.Visible = *p.Visible
	}
	if p.Locked != nil {
		l.Locked = *p.Locked
	}
	if p.Opacity != nil {
		l.Opacity = *p.Opacity
	}
	if p.BlendMode != nil {
		l.BlendMode = *p.BlendMode
	}
	if p.Position != nil {
		l.Transform.Position = *p.Position
	}
	if p.Size != nil {
		l.Transform.Size = *p.Size
	}
	if p.Rotation != nil {
		l.Transform.Rotation = *p.Rotation
	}
	if p.Constraints != nil {
		l.Constraints = *p.Constraints
	}
	if p.Effects != nil {
		l.Effects = p.Effects.clone()
	}
	if p.Tags != nil {
		l.Tags = slices.Clone(*p.Tags)
	}
	if p.Content != nil {
		l.Content = cloneContent(p.Content)
	}
	return l.normalize()
}

// Capture returns a patch holding l's current values for exactly the
// fields p touches. Applying the result undoes p.
func (p Patch) Capture(l Layer) Patch {
	var before Patch
	if p.Name != nil {
		before.Name = ptr(l.Name)
	}
	if p.Visible != nil {
		before.Visible = ptr(l.Visible)
	}
	if p.Locked != nil {
		before.Locked = ptr(l.Locked)
	}
	if p.Opacity != nil {
		before.Opacity = ptr(l.Opacity)
	}
	if p.BlendMode != nil {
		before.BlendMode = ptr(l.BlendMode)
	}
	if p.Position != nil {
		before.Position = ptr(l.Transform.Position)
	}
	if p.Size != nil {
		before.Size = ptr(l.Transform.Size)
	}
	if p.Rotation != nil {
		before.Rotation = ptr(l.Transform.Rotation)
	}
	if p.Constraints != nil {
		before.Constraints = ptr(l.Constraints)
	}
	if p.Effects != nil {
		before.Effects = ptr(l.Effects.clone())
	}
	if p.Tags != nil {
		before.Tags = ptr(slices.Clone(l.Tags))
	}
	if p.Content != nil {
		before.Content = cloneContent(l.Content)
	}
	return before
}

// Merge returns p with q's non-nil fields laid over it.
func (p Patch) Merge(q Patch) Patch {
	if q.Name != nil {
		p.Name = q.Name
	}
	if q.Visible != nil {
		p.Visible = q.Visible
	}
	if q.Locked != nil {
		p.Locked = q.Locked
	}
	if q.Opacity != nil {
		p.Opacity = q.Opacity
	}
	if q.BlendMode != nil {
		p.BlendMode = q.BlendMode
	}
	if q.Position != nil {
		p.Position = q.Position
	}
	if q.Size != nil {
		p.Size = q.Size
	}
	if q.Rotation != nil {
		p.Rotation = q.Rotation
	}
	if q.Constraints != nil {
		p.Constraints = q.Constraints
	}
	if q.Effects != nil {
		p.Effects = q.Effects
	}
	if q.Tags != nil {
		p.Tags = q.Tags
	}
	if q.Content != nil {
		p.Content = q.Content
	}
	return p
}

// MovePatch sets the position.
func MovePatch(pos geom.Point) Patch {
	return Patch{Position: &pos}
}

// BoxPatch sets position and size.
func BoxPatch(pos, size geom.Point) Patch {
	return Patch{Position: &pos, Size: &size}
}

func ptr[T any](v T) *T { return &v }
