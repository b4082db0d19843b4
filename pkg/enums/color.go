package enums

import "fmt"

// Color is the fixed palette a clothing item can be tagged with.
type Color string

const (
	ColorNoir        Color = "noir"
	ColorBlanc       Color = "blanc"
	ColorGris        Color = "gris"
	ColorBeige       Color = "beige"
	ColorMarron      Color = "marron"
	ColorRouge       Color = "rouge"
	ColorOrange      Color = "orange"
	ColorJaune       Color = "jaune"
	ColorVert        Color = "vert"
	ColorBleu        Color = "bleu"
	ColorViolet      Color = "violet"
	ColorRose        Color = "rose"
	ColorMotif       Color = "motif"
	ColorMulticolore Color = "multicolore"
)

var validColors = []Color{
	ColorNoir,
	ColorBlanc,
	ColorGris,
	ColorBeige,
	ColorMarron,
	ColorRouge,
	ColorOrange,
	ColorJaune,
	ColorVert,
	ColorBleu,
	ColorViolet,
	ColorRose,
	ColorMotif,
	ColorMulticolore,
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c Color) IsValid() bool {
	for _, candidate := range validColors {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseColor converts raw input into a Color.
func ParseColor(value string) (Color, error) {
	for _, candidate := range validColors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid color %q", value)
}
