package tier

import "strings"

// Tier is the subscription level attached to a user by the billing collaborator.
type Tier string

const (
	Free  Tier = "free"
	Pro   Tier = "pro"
	Elite Tier = "elite"
)

var rank = map[Tier]int{
	Free:  0,
	Pro:   1,
	Elite: 2,
}

// Parse maps a raw tier string to a Tier. Unknown or empty values fall back to Free.
func Parse(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rank[t]; ok {
		return t
	}
	return Free
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := rank[t]
	return ok
}

// AtLeast reports whether t is the same as or above other (free < pro < elite).
func (t Tier) AtLeast(other Tier) bool {
	return rank[Parse(string(t))] >= rank[other]
}

func (t Tier) String() string { return string(t) }
