package tagging

import (
	"sort"
	"strings"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
)

// Tag is a single label returned by the CDN's auto-tagging add-on.
// Confidence is the provider's 0..1 score.
type Tag struct {
	Name       string
	Confidence float64
}

// Suggestion is the category the highest-confidence known tag maps to.
// Confidence is rescaled to 0..100.
type Suggestion struct {
	Category   enums.Category
	Confidence int
}

// categoryByTag maps the provider's English clothing tags onto the wardrobe
// taxonomy. Tags absent from this table are ignored.
var categoryByTag = map[string]enums.Category{
	// hauts
	"shirt":       enums.CategoryHaut,
	"t-shirt":     enums.CategoryHaut,
	"tshirt":      enums.CategoryHaut,
	"top":         enums.CategoryHaut,
	"blouse":      enums.CategoryHaut,
	"sweater":     enums.CategoryHaut,
	"sweatshirt":  enums.CategoryHaut,
	"hoodie":      enums.CategoryHaut,
	"pullover":    enums.CategoryHaut,
	"polo":        enums.CategoryHaut,
	"tank top":    enums.CategoryHaut,
	"cardigan":    enums.CategoryHaut,
	"jersey":      enums.CategoryHaut,

	// bas
	"pants":    enums.CategoryBas,
	"trousers": enums.CategoryBas,
	"jeans":    enums.CategoryBas,
	"shorts":   enums.CategoryBas,
	"skirt":    enums.CategoryBas,
	"leggings": enums.CategoryBas,
	"joggers":  enums.CategoryBas,

	// robes
	"dress": enums.CategoryRobe,
	"gown":  enums.CategoryRobe,
	"robe":  enums.CategoryRobe,

	// vestes
	"jacket":   enums.CategoryVeste,
	"coat":     enums.CategoryVeste,
	"blazer":   enums.CategoryVeste,
	"parka":    enums.CategoryVeste,
	"raincoat": enums.CategoryVeste,
	"vest":     enums.CategoryVeste,

	// chaussures
	"shoe":     enums.CategoryChaussures,
	"shoes":    enums.CategoryChaussures,
	"sneaker":  enums.CategoryChaussures,
	"sneakers": enums.CategoryChaussures,
	"boot":     enums.CategoryChaussures,
	"boots":    enums.CategoryChaussures,
	"sandal":   enums.CategoryChaussures,
	"heels":    enums.CategoryChaussures,

	// accessoires
	"hat":        enums.CategoryAccessoire,
	"cap":        enums.CategoryAccessoire,
	"scarf":      enums.CategoryAccessoire,
	"belt":       enums.CategoryAccessoire,
	"bag":        enums.CategoryAccessoire,
	"handbag":    enums.CategoryAccessoire,
	"sunglasses": enums.CategoryAccessoire,
	"watch":      enums.CategoryAccessoire,
	"jewelry":    enums.CategoryAccessoire,
	"gloves":     enums.CategoryAccessoire,
	"tie":        enums.CategoryAccessoire,
}

// MapToCategory returns the category suggested by the highest-confidence known
// tag, or nil when no tag is recognized. The result is independent of input
// order: ties on confidence are broken by tag text.
func MapToCategory(tags []Tag) *Suggestion {
	if len(tags) == 0 {
		return nil
	}

	candidates := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		candidates = append(candidates, Tag{Name: name, Confidence: tag.Confidence})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Name < candidates[j].Name
	})

	for _, tag := range candidates {
		category, ok := categoryByTag[tag.Name]
		if !ok {
			continue
		}
		return &Suggestion{
			Category:   category,
			Confidence: clampConfidence(tag.Confidence * 100),
		}
	}
	return nil
}

func clampConfidence(scaled float64) int {
	switch {
	case scaled < 0:
		return 0
	case scaled > 100:
		return 100
	default:
		return int(scaled)
	}
}
