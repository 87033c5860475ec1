package classify

import "testing"

func TestDefaultVocabulary(t *testing.T) {
	v := DefaultVocabulary()

	if v.Len() != 4 {
		t.Errorf("Expected 4 classes, got %d", v.Len())
	}

	if v.Benign() != "fluent" {
		t.Errorf("Expected benign class 'fluent', got '%s'", v.Benign())
	}

	if v.Index("blocks") < 0 {
		t.Error("Expected 'blocks' in the default vocabulary")
	}

	if v.Index("unknown") != -1 {
		t.Error("Expected -1 for an unknown class")
	}
}

func TestNewVocabularyValidation(t *testing.T) {
	if _, err := NewVocabulary([]string{"only"}, "only"); err == nil {
		t.Error("Expected error for single-class vocabulary")
	}

	if _, err := NewVocabulary([]string{"a", "b"}, "c"); err == nil {
		t.Error("Expected error when benign class is missing")
	}

	if _, err := NewVocabulary([]string{"a", "b", "a"}, "a"); err == nil {
		t.Error("Expected error when benign class appears twice")
	}
}

func TestVocabularyClassesIsCopy(t *testing.T) {
	v := DefaultVocabulary()

	classes := v.Classes()
	classes[0] = "mutated"

	if v.Classes()[0] == "mutated" {
		t.Error("Classes must return a copy, not the internal slice")
	}
}

func TestValidatePrediction(t *testing.T) {
	v := DefaultVocabulary()

	valid := &Prediction{
		Class:         "blocks",
		Confidence:    0.9,
		Probabilities: []float64{0.05, 0.03, 0.9, 0.02},
	}
	if err := ValidatePrediction(v, valid); err != nil {
		t.Errorf("Valid prediction rejected: %v", err)
	}

	if err := ValidatePrediction(v, nil); err == nil {
		t.Error("Expected error for nil prediction")
	}

	bad := *valid
	bad.Class = "nonsense"
	if err := ValidatePrediction(v, &bad); err == nil {
		t.Error("Expected error for unknown class")
	}

	bad = *valid
	bad.Confidence = 1.5
	if err := ValidatePrediction(v, &bad); err == nil {
		t.Error("Expected error for out-of-range confidence")
	}

	bad = *valid
	bad.Probabilities = []float64{0.5, 0.5}
	if err := ValidatePrediction(v, &bad); err == nil {
		t.Error("Expected error for wrong probability vector length")
	}
}
