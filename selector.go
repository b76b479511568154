package wheel

// Select draws one option with probability weight/total.
//
// A uniform value r in [0, total) walks the set in order; the first option
// whose weight exceeds what is left of r wins. If rounding lets r survive the
// whole walk, the last option is returned.
func Select(options OptionSet, rnd RandomSource) (SelectionResult, error) {
	total, err := options.TotalWeight()
	if err != nil {
		return SelectionResult{}, err
	}

	u, err := drawUnit(rnd)
	if err != nil {
		return SelectionResult{}, err
	}

	index := walkWeights(options, u*float64(total))
	return SelectionResult{Index: index, Option: options[index]}, nil
}

// walkWeights performs the inverse-CDF walk for r in [0, total)
func walkWeights(options OptionSet, r float64) int {
	for i, o := range options {
		w := float64(o.Weight)
		if r < w {
			return i
		}
		r -= w
	}
	return len(options) - 1
}

// Probabilities returns weight/total for each option in order
func Probabilities(options OptionSet) ([]float64, error) {
	total, err := options.TotalWeight()
	if err != nil {
		return nil, err
	}

	probs := make([]float64, len(options))
	for i, o := range options {
		probs[i] = float64(o.Weight) / float64(total)
	}
	return probs, nil
}

// WeightedSelector draws options using a fixed random source
type WeightedSelector struct {
	generator RandomSource
}

// NewWeightedSelector creates a selector backed by a secure random generator
func NewWeightedSelector() *WeightedSelector {
	return &WeightedSelector{generator: NewSecureRandomGenerator()}
}

// NewWeightedSelectorWithSource creates a selector backed by rnd
func NewWeightedSelectorWithSource(rnd RandomSource) *WeightedSelector {
	return &WeightedSelector{generator: rnd}
}

// Select draws one option
func (ws *WeightedSelector) Select(options OptionSet) (SelectionResult, error) {
	return Select(options, ws.generator)
}

// SelectMultiple draws count options with replacement
func (ws *WeightedSelector) SelectMultiple(options OptionSet, count int) ([]SelectionResult, error) {
	if err := ValidateCount(count); err != nil {
		return nil, err
	}

	results := make([]SelectionResult, 0, count)
	for range count {
		result, err := ws.Select(options)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
