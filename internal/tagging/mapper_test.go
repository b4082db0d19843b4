package tagging

import (
	"testing"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
)

func TestMapToCategorySkipsHigherConfidenceUnknownTag(t *testing.T) {
	t.Parallel()

	got := MapToCategory([]Tag{
		{Name: "JACKET", Confidence: 0.85},
		{Name: "nature", Confidence: 0.95},
	})
	if got == nil {
		t.Fatal("expected a suggestion")
	}
	if got.Category != enums.CategoryVeste {
		t.Fatalf("expected veste, got %s", got.Category)
	}
	if got.Confidence != 85 {
		t.Fatalf("expected confidence 85, got %d", got.Confidence)
	}
}

func TestMapToCategoryOrderIndependent(t *testing.T) {
	t.Parallel()

	forward := []Tag{
		{Name: "dress", Confidence: 0.7},
		{Name: "shoes", Confidence: 0.7},
		{Name: "tree", Confidence: 0.99},
	}
	reversed := []Tag{forward[2], forward[1], forward[0]}

	a := MapToCategory(forward)
	b := MapToCategory(reversed)
	if a == nil || b == nil {
		t.Fatal("expected suggestions")
	}
	if *a != *b {
		t.Fatalf("order changed the result: %+v vs %+v", a, b)
	}
	// tie on confidence resolves by tag text, "dress" < "shoes"
	if a.Category != enums.CategoryRobe {
		t.Fatalf("expected robe on tie, got %s", a.Category)
	}
}

func TestMapToCategoryNormalizesCasingAndWhitespace(t *testing.T) {
	t.Parallel()

	got := MapToCategory([]Tag{{Name: "  SNEAKERS ", Confidence: 0.5}})
	if got == nil || got.Category != enums.CategoryChaussures {
		t.Fatalf("expected chaussures, got %+v", got)
	}
	if got.Confidence != 50 {
		t.Fatalf("expected 50, got %d", got.Confidence)
	}
}

func TestMapToCategoryClampsConfidence(t *testing.T) {
	t.Parallel()

	over := MapToCategory([]Tag{{Name: "jeans", Confidence: 1.4}})
	if over == nil || over.Confidence != 100 {
		t.Fatalf("expected clamp to 100, got %+v", over)
	}

	under := MapToCategory([]Tag{{Name: "jeans", Confidence: -0.2}})
	if under == nil || under.Confidence != 0 {
		t.Fatalf("expected clamp to 0, got %+v", under)
	}
}

func TestMapToCategoryNoMatch(t *testing.T) {
	t.Parallel()

	if got := MapToCategory(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %+v", got)
	}
	if got := MapToCategory([]Tag{}); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
	if got := MapToCategory([]Tag{{Name: "mountain", Confidence: 0.99}}); got != nil {
		t.Fatalf("expected nil for unknown tags, got %+v", got)
	}
}
