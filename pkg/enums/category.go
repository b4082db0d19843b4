package enums

import "fmt"

// Category is the fixed garment taxonomy used across the wardrobe.
type Category string

const (
	CategoryHaut       Category = "haut"
	CategoryBas        Category = "bas"
	CategoryRobe       Category = "robe"
	CategoryVeste      Category = "veste"
	CategoryChaussures Category = "chaussures"
	CategoryAccessoire Category = "accessoire"
)

var validCategories = []Category{
	CategoryHaut,
	CategoryBas,
	CategoryRobe,
	CategoryVeste,
	CategoryChaussures,
	CategoryAccessoire,
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category.
func ParseCategory(value string) (Category, error) {
	for _, candidate := range validCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", value)
}
