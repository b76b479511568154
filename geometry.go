package wheel

import (
	"math"

	"golang.org/x/text/unicode/norm"
)

// Slice is the arc of the wheel assigned to one option, in radians
type Slice struct {
	Index      int     `json:"index"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Color      string  `json:"color"`
	Label      string  `json:"label"`
	LabelAngle float64 `json:"label_angle"` // Midpoint of the arc, where the label is drawn
}

// Span returns the angular width of the slice
func (s Slice) Span() float64 { return s.End - s.Start }

// Contains reports whether angle (already normalized to [0, 2π)) falls inside the slice
func (s Slice) Contains(angle float64) bool {
	return angle >= s.Start && angle < s.End
}

// Layout maps options to consecutive slices covering [0, 2π).
//
// Boundaries come from integer cumulative weights, so no rounding builds up
// along the wheel, and the final slice always ends at exactly 2π.
func Layout(options OptionSet) ([]Slice, error) {
	total, err := options.TotalWeight()
	if err != nil {
		return nil, err
	}

	slices := make([]Slice, len(options))
	cumulative := 0
	for i, o := range options {
		start := cumulativeAngle(cumulative, total)
		cumulative += o.Weight
		end := cumulativeAngle(cumulative, total)
		if i == len(options)-1 {
			end = FullCircle
		}

		slices[i] = Slice{
			Index:      i,
			Start:      start,
			End:        end,
			Color:      Palette[i%len(Palette)],
			Label:      SliceLabel(o.Name),
			LabelAngle: start + (end-start)/2,
		}
	}

	return slices, nil
}

func cumulativeAngle(cumulative, total int) float64 {
	return float64(cumulative) / float64(total) * FullCircle
}

// SliceLabel shortens long names the way they are drawn on the wheel.
// Length is counted on the NFC form so decomposed accents count once.
func SliceLabel(name string) string {
	name = norm.NFC.String(name)
	runes := []rune(name)
	if len(runes) > MaxLabelLength {
		return string(runes[:TruncatedLabelLength]) + LabelEllipsis
	}
	return name
}

// SliceAt returns the index of the slice containing angle, or -1 when slices is empty
func SliceAt(slices []Slice, angle float64) int {
	if len(slices) == 0 {
		return -1
	}

	angle = NormalizeAngle(angle)
	for _, s := range slices {
		if s.Contains(angle) {
			return s.Index
		}
	}
	return slices[len(slices)-1].Index
}

// NormalizeAngle maps any angle into [0, 2π)
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, FullCircle)
	if a < 0 {
		a += FullCircle
	}
	if a >= FullCircle {
		a = 0
	}
	return a
}

// Degrees converts radians to degrees
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Radians converts degrees to radians
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Rotation describes how far to turn the wheel for one spin
type Rotation struct {
	Absolute float64 `json:"absolute"` // Cumulative wheel rotation after the spin
	Delta    float64 `json:"delta"`    // Amount turned by this spin, always at least FullTurns turns
	Landing  float64 `json:"landing"`  // Wheel angle that ends up under the pointer
}

// Degrees returns the absolute rotation in degrees, as CSS transforms expect
func (r Rotation) Degrees() float64 { return Degrees(r.Absolute) }

// Geometry holds the spin parameters shared by every rotation
type Geometry struct {
	FullTurns    int     `json:"full_turns"`
	PointerAngle float64 `json:"pointer_angle"`
}

// DefaultGeometry returns the geometry with default turns and pointer position
func DefaultGeometry() Geometry {
	return Geometry{FullTurns: DefaultFullTurns, PointerAngle: DefaultPointerAngle}
}

// NewGeometry creates a validated geometry
func NewGeometry(fullTurns int, pointerAngle float64) (Geometry, error) {
	g := Geometry{FullTurns: fullTurns, PointerAngle: pointerAngle}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Validate validates the geometry
func (g Geometry) Validate() error {
	if g.FullTurns < MinFullTurns || g.FullTurns > MaxFullTurns {
		return ErrInvalidFullTurns.WithDetailsf("full_turns=%d", g.FullTurns)
	}
	if math.IsNaN(g.PointerAngle) || math.IsInf(g.PointerAngle, 0) {
		return ErrConfigInvalid.WithDetailsf("pointer angle %v", g.PointerAngle)
	}
	return nil
}

// Layout maps options to slices
func (g Geometry) Layout(options OptionSet) ([]Slice, error) { return Layout(options) }

// TargetRotation computes the rotation that brings a uniformly random point of
// the winner's slice under the pointer.
//
// The wheel always turns forward from prior by FullTurns whole turns plus the
// correction needed to land, so successive absolute rotations strictly increase.
func (g Geometry) TargetRotation(options OptionSet, winnerIndex int, prior float64, rnd RandomSource) (Rotation, error) {
	if err := g.Validate(); err != nil {
		return Rotation{}, err
	}

	slices, err := Layout(options)
	if err != nil {
		return Rotation{}, err
	}
	if winnerIndex < 0 || winnerIndex >= len(slices) {
		return Rotation{}, ErrIndexOutOfRange.WithDetailsf("winner index %d, options %d", winnerIndex, len(slices))
	}

	u, err := drawUnit(rnd)
	if err != nil {
		return Rotation{}, err
	}

	target := slices[winnerIndex]
	landing := target.Start + u*target.Span()
	if landing >= target.End {
		landing = target.Start
	}

	correction := NormalizeAngle(g.PointerAngle - landing - prior)
	delta := float64(g.FullTurns)*FullCircle + correction

	return Rotation{
		Absolute: prior + delta,
		Delta:    delta,
		Landing:  landing,
	}, nil
}

// PointerSlice returns the index of the slice resting under the pointer once
// the wheel has turned by the absolute rotation
func (g Geometry) PointerSlice(options OptionSet, absolute float64) (int, error) {
	slices, err := Layout(options)
	if err != nil {
		return -1, err
	}
	return SliceAt(slices, g.PointerAngle-absolute), nil
}
