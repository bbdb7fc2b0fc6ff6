// Package filter narrows asset collections by attribute values and free text.
package filter

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"assetrepo/internal/model"
)

// Filters maps each attribute to the values an asset may match on it.
type Filters map[model.FilterableAttribute]mapset.Set[string]

// Add appends values to the set for attr, creating it if needed.
func (f Filters) Add(attr model.FilterableAttribute, values ...string) Filters {
	if len(values) == 0 {
		return f
	}
	if f[attr] == nil {
		f[attr] = mapset.NewThreadUnsafeSet[string]()
	}
	f[attr].Append(values...)
	return f
}

// IsEmpty reports whether no attribute carries any value.
func (f Filters) IsEmpty() bool {
	for _, values := range f {
		if values != nil && values.Cardinality() > 0 {
			return false
		}
	}
	return true
}

// ForQuery builds the filters for a type/product/visibility/version query.
// Empty arguments add no constraint.
func ForQuery(types []model.ResourceType, productIDs []string, visibility model.Visibility, productVersions []string) Filters {
	f := Filters{}
	for _, t := range types {
		f.Add(model.FilterType, t.Value())
	}
	f.Add(model.FilterProductID, productIDs...)
	if visibility != "" {
		f.Add(model.FilterVisibility, string(visibility))
	}
	f.Add(model.FilterProductMinVersion, productVersions...)
	return f
}

// WithUnboundedMaxVersion restricts f to assets whose applies-to records
// have no maximum version.
func (f Filters) WithUnboundedMaxVersion() Filters {
	return f.Add(model.FilterProductHasMaxVersion, "false")
}

// Matches reports whether a satisfies every non-empty filter.
func Matches(a *model.Asset, f Filters) bool {
	for attr, accepted := range f {
		if accepted == nil || accepted.Cardinality() == 0 {
			continue
		}
		if !accepted.ContainsAny(attr.Values(a)...) {
			return false
		}
	}
	return true
}

// Assets returns the assets matching f. Empty filters return all unchanged.
func Assets(all []*model.Asset, f Filters) []*model.Asset {
	if f.IsEmpty() {
		return all
	}
	out := make([]*model.Asset, 0, len(all))
	for _, a := range all {
		if Matches(a, f) {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the assets of the given types (any type when empty) whose
// name, description or short description contains search, ignoring case.
func Find(all []*model.Asset, search string, types []model.ResourceType) []*model.Asset {
	candidates := Assets(all, ForQuery(types, nil, "", nil))
	needle := strings.ToLower(search)
	out := make([]*model.Asset, 0, len(candidates))
	for _, a := range candidates {
		if containsFold(a.Name, needle) || containsFold(a.Description, needle) || containsFold(a.ShortDescription, needle) {
			out = append(out, a)
		}
	}
	return out
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}
