// Package classify slices a finished recording into classifier segments,
// defines the external classifier contract, and runs predictions across a
// bounded worker pool.
package classify

import (
	"fmt"
	"slices"
)

// Vocabulary is the fixed, ordered class list a classifier predicts over.
// Exactly one class is the benign ("no disfluency") class; every other
// class names a disfluency type.
type Vocabulary struct {
	classes []string
	benign  int
}

// NewVocabulary builds a vocabulary. The benign class must appear exactly
// once in classes.
func NewVocabulary(classes []string, benign string) (*Vocabulary, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("vocabulary needs at least two classes, got %d", len(classes))
	}

	idx := -1
	for i, c := range classes {
		if c == benign {
			if idx >= 0 {
				return nil, fmt.Errorf("benign class '%s' appears more than once", benign)
			}
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("benign class '%s' not in vocabulary %v", benign, classes)
	}

	return &Vocabulary{
		classes: slices.Clone(classes),
		benign:  idx,
	}, nil
}

// DefaultVocabulary matches the stuttering classifier's training classes.
func DefaultVocabulary() *Vocabulary {
	v, _ := NewVocabulary([]string{"repetitions", "prolongations", "blocks", "fluent"}, "fluent")
	return v
}

// Classes returns the ordered class names.
func (v *Vocabulary) Classes() []string {
	return slices.Clone(v.classes)
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int {
	return len(v.classes)
}

// Benign returns the benign class name.
func (v *Vocabulary) Benign() string {
	return v.classes[v.benign]
}

// BenignIndex returns the position of the benign class.
func (v *Vocabulary) BenignIndex() int {
	return v.benign
}

// Index returns the position of a class, or -1 if unknown.
func (v *Vocabulary) Index(class string) int {
	return slices.Index(v.classes, class)
}
