package models

// Tier names, in ranking order
const (
	TierTop          = "top"
	TierAboveAverage = "above_average"
	TierBelowAverage = "below_average"
	TierBottom       = "bottom"
)

// TierNames lists the tiers from best to worst
var TierNames = []string{TierTop, TierAboveAverage, TierBelowAverage, TierBottom}

// Tiers buckets developer display names into performance tiers
type Tiers struct {
	Top          []string `json:"top"`
	AboveAverage []string `json:"above_average"`
	BelowAverage []string `json:"below_average"`
	Bottom       []string `json:"bottom"`
}

// Len returns the number of categorized developers
func (t Tiers) Len() int {
	return len(t.Top) + len(t.AboveAverage) + len(t.BelowAverage) + len(t.Bottom)
}

// Get returns the members of the named tier
func (t Tiers) Get(name string) []string {
	switch name {
	case TierTop:
		return t.Top
	case TierAboveAverage:
		return t.AboveAverage
	case TierBelowAverage:
		return t.BelowAverage
	case TierBottom:
		return t.Bottom
	}
	return nil
}

// Map returns the tiers keyed by name; an empty population yields an empty map
func (t Tiers) Map() map[string][]string {
	result := make(map[string][]string)
	if t.Len() == 0 {
		return result
	}
	for _, name := range TierNames {
		members := t.Get(name)
		if members == nil {
			members = []string{}
		}
		result[name] = members
	}
	return result
}
