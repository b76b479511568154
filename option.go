package wheel

import (
	"slices"
	"strings"
)

// Option is one named entry on the wheel
type Option struct {
	Name   string `json:"name"`   // Display name, duplicates allowed
	Rarity string `json:"rarity"` // Rarity tier the weight came from
	Weight int    `json:"weight"` // Selection weight, always positive
}

// Validate validates the option data
func (o Option) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrInvalidOptionName
	}
	if o.Weight <= 0 {
		return ErrInvalidWeight.WithDetailsf("option %q has weight %d", o.Name, o.Weight)
	}
	return nil
}

// OptionSet is the ordered list of options; position defines the slice on the wheel
type OptionSet []Option

// DefaultOptions returns the seed used when nothing has been saved yet
func DefaultOptions() OptionSet {
	return OptionSet{
		{Name: "Prêmio Lendário", Rarity: "Lendário", Weight: 5},
		{Name: "Prêmio Comum", Rarity: "Comum", Weight: 50},
		{Name: "Prêmio Épico", Rarity: "Épico", Weight: 15},
	}
}

// Len returns the number of options
func (s OptionSet) Len() int { return len(s) }

// Validate checks that the set is non-empty, every option is valid and the
// weights sum to at most MaxTotalWeight
func (s OptionSet) Validate() error {
	if len(s) == 0 {
		return ErrEmptyOptionSet
	}
	for _, o := range s {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	_, err := s.TotalWeight()
	return err
}

// TotalWeight sums the weights, failing on an empty set, a non-positive weight
// or a total above MaxTotalWeight
func (s OptionSet) TotalWeight() (int, error) {
	if len(s) == 0 {
		return 0, ErrEmptyOptionSet
	}

	total := 0
	for i, o := range s {
		if o.Weight <= 0 {
			return 0, ErrInvalidWeight.WithDetailsf("option %d (%q) has weight %d", i, o.Name, o.Weight)
		}
		if int64(o.Weight) > MaxTotalWeight-int64(total) {
			return 0, ErrInvalidWeight.WithDetailsf("total weight exceeds %d at option %d (%q)", MaxTotalWeight, i, o.Name)
		}
		total += o.Weight
	}
	return total, nil
}

// Clone returns an independent copy of the set
func (s OptionSet) Clone() OptionSet {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// checkIndex reports ErrIndexOutOfRange when index is not a position in the set
func (s OptionSet) checkIndex(index int) error {
	if index < 0 || index >= len(s) {
		return ErrIndexOutOfRange.WithDetailsf("index %d, options %d", index, len(s))
	}
	return nil
}

// Add returns a new set with opt appended
func (s OptionSet) Add(opt Option) (OptionSet, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	next := make(OptionSet, 0, len(s)+1)
	next = append(next, s...)
	return append(next, opt), nil
}

// Replace returns a new set with the option at index replaced by opt
func (s OptionSet) Replace(index int, opt Option) (OptionSet, error) {
	if err := s.checkIndex(index); err != nil {
		return nil, err
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	next := s.Clone()
	next[index] = opt
	return next, nil
}

// Remove returns a new set without the option at index
func (s OptionSet) Remove(index int) (OptionSet, error) {
	if err := s.checkIndex(index); err != nil {
		return nil, err
	}

	next := make(OptionSet, 0, len(s)-1)
	next = append(next, s[:index]...)
	return append(next, s[index+1:]...), nil
}

// SelectionResult is the outcome of one weighted draw
type SelectionResult struct {
	Index  int    `json:"index"`  // Position of the winner in the drawn set
	Option Option `json:"option"` // Copy of the winning option
}
