package patients

import (
	"sync"

	"github.com/carelink/patient-admin/pkg/types"
)

// FilterField identifies one of the filter criteria fields
type FilterField string

const (
	FieldSearchQuery FilterField = "search_query"
	FieldBloodGroup  FilterField = "blood_group"
	FieldRiskLevel   FilterField = "risk_level"
)

// FilterBadge describes one removable active-filter badge
type FilterBadge struct {
	Field FilterField `json:"field"`
	Label string      `json:"label"`
}

// FilterSet owns transient patient search criteria. Every change merges a
// single field into the current value and synchronously notifies the
// subscriber with the full updated criteria. It performs no I/O.
type FilterSet struct {
	mu       sync.Mutex
	current  types.PatientFilters
	onChange func(types.PatientFilters)
}

// NewFilterSet creates a filter set at the default criteria. onChange may be
// nil; it is invoked synchronously on every change with the criteria passed
// by value.
func NewFilterSet(onChange func(types.PatientFilters)) *FilterSet {
	return &FilterSet{
		current:  types.DefaultPatientFilters(),
		onChange: onChange,
	}
}

// Current returns the current criteria by value
func (f *FilterSet) Current() types.PatientFilters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// SetSearchQuery merges a new search query. Free text, no validation.
func (f *FilterSet) SetSearchQuery(query string) {
	f.mu.Lock()
	f.current.SearchQuery = query
	updated := f.current
	f.mu.Unlock()

	f.notify(updated)
}

// SetBloodGroup merges a new blood group selection. Only the eight known
// groups or the "all" sentinel are accepted.
func (f *FilterSet) SetBloodGroup(group types.BloodGroup) error {
	if group != types.BloodGroupAll && !group.IsValid() {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			"unknown blood group: "+string(group), nil)
	}

	f.mu.Lock()
	f.current.BloodGroup = group
	updated := f.current
	f.mu.Unlock()

	f.notify(updated)
	return nil
}

// SetRiskLevel merges a new risk level selection
func (f *FilterSet) SetRiskLevel(level types.RiskLevel) error {
	if level != types.RiskLevelAll && !level.IsValid() {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			"unknown risk level: "+string(level), nil)
	}

	f.mu.Lock()
	f.current.RiskLevel = level
	updated := f.current
	f.mu.Unlock()

	f.notify(updated)
	return nil
}

// Clear resets all fields to their defaults and notifies
func (f *FilterSet) Clear() {
	f.mu.Lock()
	f.current = types.DefaultPatientFilters()
	updated := f.current
	f.mu.Unlock()

	f.notify(updated)
}

// HasActiveFilters reports whether any field differs from its default
func (f *FilterSet) HasActiveFilters() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.current.IsDefault()
}

// ActiveBadges returns one removable badge per non-default select field.
// The free-text query narrows results but carries no badge of its own.
func (f *FilterSet) ActiveBadges() []FilterBadge {
	f.mu.Lock()
	defer f.mu.Unlock()

	var badges []FilterBadge
	if f.current.BloodGroup != types.BloodGroupAll {
		badges = append(badges, FilterBadge{
			Field: FieldBloodGroup,
			Label: "Blood group: " + string(f.current.BloodGroup),
		})
	}
	if f.current.RiskLevel != types.RiskLevelAll {
		badges = append(badges, FilterBadge{
			Field: FieldRiskLevel,
			Label: "Risk: " + string(f.current.RiskLevel),
		})
	}
	return badges
}

// RemoveBadge resets a single field to its default and notifies
func (f *FilterSet) RemoveBadge(field FilterField) {
	f.mu.Lock()
	switch field {
	case FieldSearchQuery:
		f.current.SearchQuery = ""
	case FieldBloodGroup:
		f.current.BloodGroup = types.BloodGroupAll
	case FieldRiskLevel:
		f.current.RiskLevel = types.RiskLevelAll
	default:
		f.mu.Unlock()
		return
	}
	updated := f.current
	f.mu.Unlock()

	f.notify(updated)
}

// notify is called outside the lock so subscribers may read back freely
func (f *FilterSet) notify(updated types.PatientFilters) {
	if f.onChange != nil {
		f.onChange(updated)
	}
}
