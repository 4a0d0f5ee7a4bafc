package document

import (
	"math"

	"github.com/inamate/designkit/internal/geom"
)

type EffectType string

const (
	EffectDropShadow  EffectType = "drop-shadow"
	EffectInnerShadow EffectType = "inner-shadow"
	EffectBlur        EffectType = "blur"
	EffectGlow        EffectType = "glow"
	EffectOutline     EffectType = "outline"
	EffectColorAdjust EffectType = "color-adjust"
	EffectNoise       EffectType = "noise"
)

// Placement says where an effect composites relative to the layer content.
type Placement int

const (
	// Underlay effects draw before (beneath) the content.
	Underlay Placement = iota
	// Overlay effects draw after (above) the content.
	Overlay
	// InPlace effects filter the rendered content itself.
	InPlace
)

func (p Placement) String() string {
	switch p {
	case Underlay:
		return "underlay"
	case Overlay:
		return "overlay"
	case InPlace:
		return "in-place"
	default:
		return "unknown"
	}
}

// Effect is one entry of a layer's effect list. Effects apply in list order.
type Effect interface {
	EffectType() EffectType
	IsEnabled() bool
	Placement() Placement
	// Extent is how far the effect can paint outside the layer box.
	Extent() float64
	isEffect()
}

type DropShadow struct {
	Enabled bool       `json:"enabled"`
	Color   Color      `json:"color"`
	Offset  geom.Point `json:"offset"`
	Blur    float64    `json:"blur"`
	Spread  float64    `json:"spread"`
}

type InnerShadow struct {
	Enabled bool       `json:"enabled"`
	Color   Color      `json:"color"`
	Offset  geom.Point `json:"offset"`
	Blur    float64    `json:"blur"`
}

type Blur struct {
	Enabled bool    `json:"enabled"`
	Radius  float64 `json:"radius"`
}

type Glow struct {
	Enabled bool    `json:"enabled"`
	Color   Color   `json:"color"`
	Radius  float64 `json:"radius"`
}

type Outline struct {
	Enabled bool    `json:"enabled"`
	Color   Color   `json:"color"`
	Width   float64 `json:"width"`
}

type ColorAdjust struct {
	Enabled    bool    `json:"enabled"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
}

type Noise struct {
	Enabled bool    `json:"enabled"`
	Amount  float64 `json:"amount"`
	Seed    int64   `json:"seed"`
}

func (DropShadow) EffectType() EffectType  { return EffectDropShadow }
func (InnerShadow) EffectType() EffectType { return EffectInnerShadow }
func (Blur) EffectType() EffectType        { return EffectBlur }
func (Glow) EffectType() EffectType        { return EffectGlow }
func (Outline) EffectType() EffectType     { return EffectOutline }
func (ColorAdjust) EffectType() EffectType { return EffectColorAdjust }
func (Noise) EffectType() EffectType       { return EffectNoise }

func (e DropShadow) IsEnabled() bool  { return e.Enabled }
func (e InnerShadow) IsEnabled() bool { return e.Enabled }
func (e Blur) IsEnabled() bool        { return e.Enabled }
func (e Glow) IsEnabled() bool        { return e.Enabled }
func (e Outline) IsEnabled() bool     { return e.Enabled }
func (e ColorAdjust) IsEnabled() bool { return e.Enabled }
func (e Noise) IsEnabled() bool       { return e.Enabled }

func (DropShadow) Placement() Placement  { return Underlay }
func (InnerShadow) Placement() Placement { return Overlay }
func (Blur) Placement() Placement        { return InPlace }
func (Glow) Placement() Placement        { return Underlay }
func (Outline) Placement() Placement     { return Overlay }
func (ColorAdjust) Placement() Placement { return InPlace }
func (Noise) Placement() Placement       { return InPlace }

func (e DropShadow) Extent() float64 {
	return max(0, e.Blur+e.Spread) + math.Max(math.Abs(e.Offset.X), math.Abs(e.Offset.Y))
}
func (InnerShadow) Extent() float64  { return 0 }
func (e Blur) Extent() float64       { return max(0, e.Radius) }
func (e Glow) Extent() float64       { return max(0, e.Radius) }
func (e Outline) Extent() float64    { return max(0, e.Width) }
func (ColorAdjust) Extent() float64  { return 0 }
func (Noise) Extent() float64        { return 0 }

func (DropShadow) isEffect()  {}
func (InnerShadow) isEffect() {}
func (Blur) isEffect()        {}
func (Glow) isEffect()        {}
func (Outline) isEffect()     {}
func (ColorAdjust) isEffect() {}
func (Noise) isEffect()       {}

// Effects is an ordered effect list.
type Effects []Effect

func (es Effects) clone() Effects {
	if es == nil {
		return nil
	}
	return append(Effects(nil), es...)
}

// Extent returns the largest extent of the enabled effects.
func (es Effects) Extent() float64 {
	var ext float64
	for _, e := range es {
		if e.IsEnabled() {
			ext = max(ext, e.Extent())
		}
	}
	return ext
}
