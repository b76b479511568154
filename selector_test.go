package wheel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func weighted(weights ...int) OptionSet {
	set := make(OptionSet, len(weights))
	for i, w := range weights {
		set[i] = Option{Name: "option", Rarity: "", Weight: w}
	}
	return set
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		options   OptionSet
		u         float64
		wantIndex int
		wantErr   error
	}{
		{
			name:      "zero_picks_first",
			options:   weighted(5, 50, 15),
			u:         0,
			wantIndex: 0,
		},
		{
			name:      "just_below_total_picks_last",
			options:   weighted(5, 50, 15),
			u:         math.Nextafter(1, 0),
			wantIndex: 2,
		},
		{
			name:      "boundary_belongs_to_next_option",
			options:   weighted(50, 30, 15, 5),
			u:         0.5,
			wantIndex: 1,
		},
		{
			name:      "inside_third_slice",
			options:   weighted(50, 30, 15, 5),
			u:         0.9,
			wantIndex: 2,
		},
		{
			name:      "single_option",
			options:   weighted(7),
			u:         0.99,
			wantIndex: 0,
		},
		{
			name:    "empty_set",
			options: OptionSet{},
			u:       0.3,
			wantErr: ErrEmptyOptionSet,
		},
		{
			name:    "nil_set",
			options: nil,
			u:       0.3,
			wantErr: ErrEmptyOptionSet,
		},
		{
			name:    "zero_weight",
			options: weighted(5, 0, 15),
			u:       0.3,
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "negative_weight",
			options: weighted(-1),
			u:       0.3,
			wantErr: ErrInvalidWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Select(tt.options, fixedSource(tt.u))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, result.Index)
			assert.Equal(t, tt.options[tt.wantIndex], result.Option)
		})
	}
}

func TestSelect_RejectsTotalWeightOverflow(t *testing.T) {
	// Two halves of MaxInt would wrap the int sum negative
	options := OptionSet{
		{Name: "a", Weight: math.MaxInt/2 + 1},
		{Name: "b", Weight: math.MaxInt/2 + 1},
	}

	for _, u := range []float64{0.1, 0.6, 0.9} {
		_, err := Select(options, fixedSource(u))
		assert.ErrorIs(t, err, ErrInvalidWeight)
	}

	_, err := Probabilities(options)
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	options := DefaultOptions()
	before := options.Clone()

	_, err := Select(options, fixedSource(0.42))
	require.NoError(t, err)
	assert.Equal(t, before, options)
}

func TestWalkWeights_FallbackToLast(t *testing.T) {
	// r equal to the total never matches and must land on the last option
	assert.Equal(t, 2, walkWeights(weighted(1, 2, 3), 6))
	assert.Equal(t, 2, walkWeights(weighted(1, 2, 3), 6.0000001))
}

func TestSelect_FrequencyConvergesToWeights(t *testing.T) {
	options := weighted(50, 30, 15, 5)
	total := 100

	t.Run("evenly_spaced_source", func(t *testing.T) {
		const n = 10000
		counts := make([]int, len(options))
		for i := range n {
			result, err := Select(options, fixedSource(float64(i)/n))
			require.NoError(t, err)
			counts[result.Index]++
		}

		for i, o := range options {
			assert.Equal(t, n*o.Weight/total, counts[i], "index %d", i)
		}
	})

	t.Run("secure_source", func(t *testing.T) {
		const n = 100000
		selector := NewWeightedSelector()
		results, err := selector.SelectMultiple(options, n)
		require.NoError(t, err)
		require.Len(t, results, n)

		counts := make([]int, len(options))
		for _, r := range results {
			counts[r.Index]++
		}

		for i, o := range options {
			expected := float64(o.Weight) / float64(total)
			actual := float64(counts[i]) / n
			assert.InDelta(t, expected, actual, 0.01, "index %d", i)
		}
	})
}

func TestSelect_ChiSquareGoodnessOfFit(t *testing.T) {
	options := DefaultOptions()
	probs, err := Probabilities(options)
	require.NoError(t, err)

	const n = 50000
	results, err := NewWeightedSelector().SelectMultiple(options, n)
	require.NoError(t, err)

	observed := make([]float64, len(options))
	for _, r := range results {
		observed[r.Index]++
	}
	expected := make([]float64, len(options))
	for i, p := range probs {
		expected[i] = p * n
	}

	// 显著性水平 0.001，误报概率可忽略
	chi2 := stat.ChiSquare(observed, expected)
	critical := distuv.ChiSquared{K: float64(len(options) - 1)}.Quantile(0.999)
	assert.Less(t, chi2, critical, "observed=%v expected=%v", observed, expected)
}

func TestWeightedSelector_SelectMultiple(t *testing.T) {
	selector := NewWeightedSelectorWithSource(sequenceSource(0, 0.6, 0.99))

	results, err := selector.SelectMultiple(weighted(5, 50, 15), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, 2, results[2].Index)

	_, err = selector.SelectMultiple(weighted(5), 0)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = selector.SelectMultiple(OptionSet{}, 2)
	assert.ErrorIs(t, err, ErrEmptyOptionSet)
}

func TestProbabilities(t *testing.T) {
	probs, err := Probabilities(weighted(50, 30, 15, 5))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.15, 0.05}, probs, 1e-12)

	_, err = Probabilities(nil)
	assert.ErrorIs(t, err, ErrEmptyOptionSet)
}
