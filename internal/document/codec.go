package document

import (
	"encoding/json"
	"fmt"
)

// FormatVersion is written into every serialized document.
const FormatVersion = 1

// tagged is the wire form of every sealed variant.
type tagged struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func encodeTagged(typ string, v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tagged{Type: typ, Value: raw})
}

func decodeTagged(data []byte) (tagged, error) {
	var t tagged
	if err := json.Unmarshal(data, &t); err != nil {
		return t, err
	}
	if t.Type == "" {
		return t, fmt.Errorf("%w: missing type discriminator", ErrInvalidDocument)
	}
	return t, nil
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

func encodePaint(p Paint) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("null"), nil
	}
	return encodeTagged(string(p.PaintType()), p)
}

func decodePaint(data []byte) (Paint, error) {
	if string(data) == "null" {
		return nil, nil
	}
	t, err := decodeTagged(data)
	if err != nil {
		return nil, err
	}
	switch PaintType(t.Type) {
	case PaintSolid:
		return decodeAs[SolidPaint](t.Value)
	case PaintGradient:
		return decodeAs[GradientPaint](t.Value)
	case PaintPattern:
		return decodeAs[PatternPaint](t.Value)
	case PaintImage:
		return decodeAs[ImagePaint](t.Value)
	}
	return nil, fmt.Errorf("%w: unknown paint type %q", ErrInvalidDocument, t.Type)
}

func (ps Paints) MarshalJSON() ([]byte, error) {
	if ps == nil {
		return []byte("null"), nil
	}
	out := make([]json.RawMessage, len(ps))
	for i, p := range ps {
		raw, err := encodePaint(p)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return json.Marshal(out)
}

func (ps *Paints) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	if raws == nil {
		*ps = nil
		return nil
	}
	out := make(Paints, len(raws))
	for i, raw := range raws {
		p, err := decodePaint(raw)
		if err != nil {
			return err
		}
		out[i] = p
	}
	*ps = out
	return nil
}

func (s Stroke) MarshalJSON() ([]byte, error) {
	type plain Stroke
	paint, err := encodePaint(s.Paint)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		Paint json.RawMessage `json:"paint"`
	}{plain(s), paint})
}

func (s *Stroke) UnmarshalJSON(data []byte) error {
	type plain Stroke
	var w struct {
		plain
		Paint json.RawMessage `json:"paint"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Stroke(w.plain)
	if len(w.Paint) == 0 {
		return nil
	}
	p, err := decodePaint(w.Paint)
	if err != nil {
		return err
	}
	s.Paint = p
	return nil
}

func (es Effects) MarshalJSON() ([]byte, error) {
	if es == nil {
		return []byte("null"), nil
	}
	out := make([]json.RawMessage, len(es))
	for i, e := range es {
		raw, err := encodeTagged(string(e.EffectType()), e)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return json.Marshal(out)
}

func (es *Effects) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	if raws == nil {
		*es = nil
		return nil
	}
	out := make(Effects, len(raws))
	for i, raw := range raws {
		e, err := decodeEffect(raw)
		if err != nil {
			return err
		}
		out[i] = e
	}
	*es = out
	return nil
}

func decodeEffect(data []byte) (Effect, error) {
	t, err := decodeTagged(data)
	if err != nil {
		return nil, err
	}
	switch EffectType(t.Type) {
	case EffectDropShadow:
		return decodeAs[DropShadow](t.Value)
	case EffectInnerShadow:
		return decodeAs[InnerShadow](t.Value)
	case EffectBlur:
		return decodeAs[Blur](t.Value)
	case EffectGlow:
		return decodeAs[Glow](t.Value)
	case EffectOutline:
		return decodeAs[Outline](t.Value)
	case EffectColorAdjust:
		return decodeAs[ColorAdjust](t.Value)
	case EffectNoise:
		return decodeAs[Noise](t.Value)
	}
	return nil, fmt.Errorf("%w: unknown effect type %q", ErrInvalidDocument, t.Type)
}

func encodeContent(c Content) (json.RawMessage, error) {
	if c == nil {
		return json.RawMessage("null"), nil
	}
	return encodeTagged(string(c.Kind()), c)
}

func decodeContent(data []byte) (Content, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	t, err := decodeTagged(data)
	if err != nil {
		return nil, err
	}
	switch Kind(t.Type) {
	case KindText:
		return decodeAs[Text](t.Value)
	case KindShape:
		return decodeAs[Shape](t.Value)
	case KindImage:
		return decodeAs[Image](t.Value)
	case KindIcon:
		return decodeAs[Icon](t.Value)
	case KindPath:
		return decodeAs[Path](t.Value)
	case KindFrame:
		return decodeAs[Frame](t.Value)
	case KindGroup:
		return decodeAs[Group](t.Value)
	case KindBooleanGroup:
		return decodeAs[BooleanGroup](t.Value)
	}
	return nil, fmt.Errorf("%w: unknown layer kind %q", ErrInvalidDocument, t.Type)
}

func (l Layer) MarshalJSON() ([]byte, error) {
	type plain Layer
	content, err := encodeContent(l.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		Content json.RawMessage `json:"content"`
	}{plain(l), content})
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	type plain Layer
	var w struct {
		plain
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c, err := decodeContent(w.Content)
	if err != nil {
		return err
	}
	*l = Layer(w.plain)
	l.Content = c
	return nil
}

func (p Patch) MarshalJSON() ([]byte, error) {
	type plain Patch
	w := struct {
		plain
		Content json.RawMessage `json:"content,omitempty"`
	}{plain: plain(p)}
	if p.Content != nil {
		raw, err := encodeContent(p.Content)
		if err != nil {
			return nil, err
		}
		w.Content = raw
	}
	return json.Marshal(w)
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	type plain Patch
	var w struct {
		plain
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c, err := decodeContent(w.Content)
	if err != nil {
		return err
	}
	*p = Patch(w.plain)
	p.Content = c
	return nil
}

type wireDocument struct {
	Version   int                   `json:"version"`
	Root      LayerID               `json:"root"`
	Layers    []Layer               `json:"layers"`
	Children  map[LayerID][]LayerID `json:"children"`
	Selection []LayerID             `json:"selection"`
}

// Marshal encodes the document as JSON. Layers are written in paint order.
func Marshal(d Document) ([]byte, error) {
	w := wireDocument{
		Version:   FormatVersion,
		Root:      d.root,
		Children:  map[LayerID][]LayerID{},
		Selection: d.Selection(),
	}
	for l := range d.PaintOrder() {
		w.Layers = append(w.Layers, l)
		if kids := d.children[l.ID]; len(kids) > 0 {
			w.Children[l.ID] = kids
		}
	}
	return json.Marshal(w)
}

// Unmarshal decodes a document and validates its invariants.
func Unmarshal(data []byte) (Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if w.Version > FormatVersion {
		return Document{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, w.Version)
	}
	d := Document{
		root:     w.Root,
		layers:   make(map[LayerID]Layer, len(w.Layers)),
		children: map[LayerID][]LayerID{},
		parent:   map[LayerID]LayerID{},
	}
	for _, l := range w.Layers {
		if _, dup := d.layers[l.ID]; dup {
			return Document{}, fmt.Errorf("%w: duplicate layer id %s", ErrInvalidDocument, l.ID)
		}
		d.layers[l.ID] = l.normalize()
	}
	for p, kids := range w.Children {
		if len(kids) == 0 {
			continue
		}
		d.children[p] = kids
		for _, k := range kids {
			if prev, ok := d.parent[k]; ok {
				return Document{}, fmt.Errorf("%w: %s is a child of both %s and %s", ErrInvalidDocument, k, prev, p)
			}
			d.parent[k] = p
		}
	}
	d.selection = w.Selection
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

// MarshalJSON lets documents embed in other JSON payloads.
func (d Document) MarshalJSON() ([]byte, error) { return Marshal(d) }

func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
