package domain

import (
	"fmt"
	"slices"
)

// AgeCategory buckets the viewer's age.
type AgeCategory string

const (
	AgeUnder13 AgeCategory = "under_13"
	AgeUnder16 AgeCategory = "under_16"
	AgeUnder18 AgeCategory = "under_18"
	AgeAdult   AgeCategory = "adult"
)

// AgeCategoryFor maps an age in years to its category.
func AgeCategoryFor(age int) AgeCategory {
	switch {
	case age < 13:
		return AgeUnder13
	case age < 16:
		return AgeUnder16
	case age < 18:
		return AgeUnder18
	default:
		return AgeAdult
	}
}

// IsMinor reports whether the category is below adult.
func (a AgeCategory) IsMinor() bool { return a != AgeAdult }

// Valid reports whether a is a known category.
func (a AgeCategory) Valid() bool {
	switch a {
	case AgeUnder13, AgeUnder16, AgeUnder18, AgeAdult:
		return true
	}
	return false
}

// SafetyLevel sets how aggressively content is filtered.
type SafetyLevel string

const (
	SafetyMinimal  SafetyLevel = "minimal"
	SafetyLenient  SafetyLevel = "lenient"
	SafetyModerate SafetyLevel = "moderate"
	SafetyStrict   SafetyLevel = "strict"
)

// Valid reports whether l is a known level.
func (l SafetyLevel) Valid() bool {
	switch l {
	case SafetyMinimal, SafetyLenient, SafetyModerate, SafetyStrict:
		return true
	}
	return false
}

// Jurisdiction selects regulatory prompt guidance.
type Jurisdiction string

const (
	JurisdictionEU Jurisdiction = "EU"
	JurisdictionUS Jurisdiction = "US"
	JurisdictionIN Jurisdiction = "IN"
	JurisdictionCN Jurisdiction = "CN"
)

// SafetyProfile is the per-user policy. The pipeline only reads it.
type SafetyProfile struct {
	ProfileID         string       `db:"profile_id"   json:"profile_id"           yaml:"profile_id"`
	AgeCategory       AgeCategory  `db:"age_category" json:"age_category"         yaml:"age_category"`
	SafetyLevel       SafetyLevel  `db:"safety_level" json:"safety_level"         yaml:"safety_level"`
	Jurisdiction      Jurisdiction `db:"jurisdiction" json:"jurisdiction"         yaml:"jurisdiction"`
	AllowedCategories []string     `db:"-"            json:"allowed_categories"   yaml:"allowed_categories"`
	BlockedCategories []string     `db:"-"            json:"blocked_categories"   yaml:"blocked_categories"`
}

// Validate rejects profiles the decision engine cannot evaluate.
func (p SafetyProfile) Validate() error {
	if p.ProfileID == "" {
		return fmt.Errorf("%w: profile id is empty", ErrConfiguration)
	}
	if !p.AgeCategory.Valid() {
		return fmt.Errorf("%w: profile %s: unknown age category %q", ErrConfiguration, p.ProfileID, p.AgeCategory)
	}
	if !p.SafetyLevel.Valid() {
		return fmt.Errorf("%w: profile %s: unknown safety level %q", ErrConfiguration, p.ProfileID, p.SafetyLevel)
	}
	return nil
}

// IsBlocked reports whether category is in BlockedCategories.
func (p SafetyProfile) IsBlocked(category string) bool {
	return slices.Contains(p.BlockedCategories, category)
}

// IsAllowed reports whether category is permitted. An empty allow list
// permits everything.
func (p SafetyProfile) IsAllowed(category string) bool {
	return len(p.AllowedCategories) == 0 || slices.Contains(p.AllowedCategories, category)
}
