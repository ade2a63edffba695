package rest

import (
	"fmt"

	"github.com/veccore/annengine/pkg/search"
)

// filterSpec is the wire representation of a pkg/search filter tree. A
// leaf node sets Field/Op/Value (or Values/Min/Max/Lat/Lon/RadiusKm
// depending on Op); a composite node sets Op to "and"/"or"/"not" and
// populates Filters with its children.
type filterSpec struct {
	Op       string        `json:"op,omitempty"`
	Field    string        `json:"field,omitempty"`
	Value    interface{}   `json:"value,omitempty"`
	Values   []interface{} `json:"values,omitempty"`
	Min      interface{}   `json:"min,omitempty"`
	Max      interface{}   `json:"max,omitempty"`
	Lat      float64       `json:"lat,omitempty"`
	Lon      float64       `json:"lon,omitempty"`
	RadiusKm float64       `json:"radius_km,omitempty"`
	Filters  []filterSpec  `json:"filters,omitempty"`
}

// buildFilter compiles a filterSpec into a search.Filter, recursing
// into composite and/or/not nodes.
func buildFilter(spec filterSpec) (search.Filter, error) {
	op := search.FilterOperator(spec.Op)
	switch op {
	case search.OpAnd, search.OpOr, search.OpNot:
		filters := make([]search.Filter, 0, len(spec.Filters))
		for _, child := range spec.Filters {
			f, err := buildFilter(child)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		}
		return &search.CompositeFilter{Operator: op, Filters: filters}, nil

	case search.OpIn:
		return search.In(spec.Field, spec.Values...), nil
	case search.OpNotIn:
		return search.NotIn(spec.Field, spec.Values...), nil
	case search.OpRange:
		return search.Range(spec.Field, spec.Min, spec.Max), nil
	case search.OpGeoRadius:
		return search.GeoRadiusMeters(spec.Field, spec.Lat, spec.Lon, spec.RadiusKm*1000), nil
	case search.OpExists:
		return search.Exists(spec.Field), nil
	case search.OpNotEquals:
		return search.Ne(spec.Field, spec.Value), nil
	case search.OpGreaterThan:
		return search.Gt(spec.Field, spec.Value), nil
	case search.OpLessThan:
		return search.Lt(spec.Field, spec.Value), nil
	case search.OpGreaterOrEq:
		return search.Gte(spec.Field, spec.Value), nil
	case search.OpLessOrEq:
		return search.Lte(spec.Field, spec.Value), nil
	case search.OpEquals, "":
		return search.Eq(spec.Field, spec.Value), nil
	default:
		return nil, fmt.Errorf("unknown filter operator %q", spec.Op)
	}
}

// filterFuncFor resolves a request's filter to a search.FilterFunc: the
// structured expr wins when present, otherwise the legacy flat map is
// treated as an implicit all-fields-equal AND, and a request with
// neither applies no filtering.
func filterFuncFor(expr *filterSpec, flat map[string]interface{}) (search.FilterFunc, error) {
	if expr != nil {
		f, err := buildFilter(*expr)
		if err != nil {
			return nil, err
		}
		return f.Match, nil
	}
	return equalityFilter(flat), nil
}
