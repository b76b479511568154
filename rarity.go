package wheel

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RarityTier maps a rarity name to its fixed weight
type RarityTier struct {
	Name   string `mapstructure:"name" json:"name"`
	Weight int    `mapstructure:"weight" json:"weight"`
}

// RarityTable is the ordered list of tiers offered when editing options
type RarityTable []RarityTier

// DefaultRarityTable returns the built-in tiers
func DefaultRarityTable() RarityTable {
	return RarityTable{
		{Name: "Comum", Weight: 50},
		{Name: "Raro", Weight: 30},
		{Name: "Épico", Weight: 15},
		{Name: "Lendário", Weight: 5},
	}
}

// Validate rejects empty tables, blank or duplicate names and non-positive weights.
// Names are compared in NFC form, the same way Weight looks them up.
func (t RarityTable) Validate() error {
	if len(t) == 0 {
		return ErrInvalidRarity.WithDetails("no tiers configured")
	}

	seen := make(map[string]struct{}, len(t))
	for _, tier := range t {
		name := norm.NFC.String(strings.TrimSpace(tier.Name))
		if name == "" {
			return ErrInvalidRarity.WithDetails("tier name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return ErrInvalidRarity.WithDetailsf("duplicate tier %q", name)
		}
		if tier.Weight <= 0 {
			return ErrInvalidRarity.WithDetailsf("tier %q has weight %d", name, tier.Weight)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Weight returns the weight of the named tier
func (t RarityTable) Weight(rarity string) (int, error) {
	rarity = norm.NFC.String(rarity)
	for _, tier := range t {
		if norm.NFC.String(tier.Name) == rarity {
			return tier.Weight, nil
		}
	}
	return 0, ErrUnknownRarity.WithDetailsf("rarity %q", rarity)
}

// Names lists the tier names in table order
func (t RarityTable) Names() []string {
	names := make([]string, len(t))
	for i, tier := range t {
		names[i] = tier.Name
	}
	return names
}

// NewOption builds a validated option whose weight comes from the rarity tier
func (t RarityTable) NewOption(name, rarity string) (Option, error) {
	weight, err := t.Weight(rarity)
	if err != nil {
		return Option{}, err
	}

	opt := Option{Name: norm.NFC.String(strings.TrimSpace(name)), Rarity: norm.NFC.String(rarity), Weight: weight}
	if err := opt.Validate(); err != nil {
		return Option{}, err
	}
	return opt, nil
}
