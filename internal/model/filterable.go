package model

import (
	"fmt"
	"slices"
	"strings"
)

// FilterableAttribute is an asset dimension usable in collection queries.
type FilterableAttribute string

const (
	FilterType                 FilterableAttribute = "TYPE"
	FilterProductID            FilterableAttribute = "PRODUCT_ID"
	FilterVisibility           FilterableAttribute = "VISIBILITY"
	FilterSymbolicName         FilterableAttribute = "SYMBOLIC_NAME"
	FilterProductMinVersion    FilterableAttribute = "PRODUCT_MIN_VERSION"
	FilterProductHasMaxVersion FilterableAttribute = "PRODUCT_HAS_MAX_VERSION"
	FilterShortName            FilterableAttribute = "SHORT_NAME"
	FilterLowerCaseShortName   FilterableAttribute = "LOWER_CASE_SHORT_NAME"
	FilterVanityURL            FilterableAttribute = "VANITY_URL"
)

type attributeInfo struct {
	key     string
	extract func(a *Asset) []string
}

var attributes = map[FilterableAttribute]attributeInfo{
	FilterType: {
		key: "type",
		extract: func(a *Asset) []string {
			if a.Type == "" {
				return nil
			}
			return []string{a.Type.Value()}
		},
	},
	FilterProductID: {
		key:     "wlpInformation.appliesToFilterInfo.productId",
		extract: eachAppliesTo(func(f *AppliesToFilterInfo) string { return f.ProductID }),
	},
	FilterVisibility: {
		key: "wlpInformation.visibility",
		extract: fromWlp(func(w *WlpInformation) []string {
			return single(string(w.Visibility))
		}),
	},
	FilterSymbolicName: {
		key:     "wlpInformation.provideFeature",
		extract: fromWlp(func(w *WlpInformation) []string { return w.ProvideFeature }),
	},
	FilterProductMinVersion: {
		key: "wlpInformation.appliesToFilterInfo.minVersion.value",
		extract: eachAppliesTo(func(f *AppliesToFilterInfo) string {
			if f.MinVersion == nil {
				return ""
			}
			return f.MinVersion.Value
		}),
	},
	FilterProductHasMaxVersion: {
		key:     "wlpInformation.appliesToFilterInfo.hasMaxVersion",
		extract: eachAppliesTo(func(f *AppliesToFilterInfo) string { return f.HasMaxVersion }),
	},
	FilterShortName: {
		key:     "wlpInformation.shortName",
		extract: fromWlp(func(w *WlpInformation) []string { return single(w.ShortName) }),
	},
	FilterLowerCaseShortName: {
		key:     "wlpInformation.lowerCaseShortName",
		extract: fromWlp(func(w *WlpInformation) []string { return single(w.LowerCaseShortName) }),
	},
	FilterVanityURL: {
		key:     "wlpInformation.vanityRelativeURL",
		extract: fromWlp(func(w *WlpInformation) []string { return single(w.VanityRelativeURL) }),
	},
}

// FilterableAttributes returns every attribute in a stable order.
func FilterableAttributes() []FilterableAttribute {
	out := make([]FilterableAttribute, 0, len(attributes))
	for a := range attributes {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// ParseFilterableAttribute accepts an attribute name in any case.
func ParseFilterableAttribute(s string) (FilterableAttribute, error) {
	a := FilterableAttribute(strings.ToUpper(s))
	if _, ok := attributes[a]; !ok {
		return "", fmt.Errorf("unknown filterable attribute %q", s)
	}
	return a, nil
}

// Key returns the dotted JSON path the attribute is stored under.
func (f FilterableAttribute) Key() string {
	return attributes[f].key
}

// Values extracts the attribute's values from a. The result is empty when
// the asset has nothing for this attribute.
func (f FilterableAttribute) Values(a *Asset) []string {
	info, ok := attributes[f]
	if !ok || a == nil {
		return nil
	}
	return info.extract(a)
}

func fromWlp(get func(w *WlpInformation) []string) func(a *Asset) []string {
	return func(a *Asset) []string {
		if a.WlpInformation == nil {
			return nil
		}
		return get(a.WlpInformation)
	}
}

func eachAppliesTo(get func(f *AppliesToFilterInfo) string) func(a *Asset) []string {
	return fromWlp(func(w *WlpInformation) []string {
		var out []string
		for _, info := range w.AppliesToFilterInfo {
			if info == nil {
				continue
			}
			if v := get(info); v != "" {
				out = append(out, v)
			}
		}
		return out
	})
}

func single(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
