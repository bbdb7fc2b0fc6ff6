package client

import (
	"net/url"
	"slices"
	"strings"

	"assetrepo/internal/filter"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

// Visibility values that old readers cannot parse are stored under
// wlpInformation2 and must be queried there.
const siblingVisibilityKey = "wlpInformation2.visibility"

// filterQuery renders filters as REST query parameters, one per attribute
// with its values joined by "|".
func filterQuery(filters filter.Filters) (url.Values, error) {
	query := url.Values{}
	for _, attr := range model.FilterableAttributes() {
		set := filters[attr]
		if set == nil || set.Cardinality() == 0 {
			continue
		}
		values := set.ToSlice()
		slices.Sort(values)

		if attr == model.FilterVisibility {
			primary, sibling := splitVisibility(values)
			if len(primary) > 0 && len(sibling) > 0 {
				return nil, repository.NewClientFailure(repository.ErrMixedVisibility,
					"cannot query visibility values stored under different keys in one request",
					"primary", primary, "sibling", sibling)
			}
			if len(sibling) > 0 {
				query.Set(siblingVisibilityKey, strings.Join(sibling, "|"))
				continue
			}
		}
		query.Set(attr.Key(), strings.Join(values, "|"))
	}
	return query, nil
}

func splitVisibility(values []string) (primary, sibling []string) {
	for _, v := range values {
		if strings.EqualFold(v, string(model.VisibilityInstall)) {
			sibling = append(sibling, v)
		} else {
			primary = append(primary, v)
		}
	}
	return primary, sibling
}
