package notion

// Filter is the generic query-filter tree accepted by the database query
// endpoint: either a composite {"and": [...]} / {"or": [...]} node or a leaf
// {"property": name, <type>: {<predicate>: value}} condition. It marshals
// directly into the "filter" member of a query request body.
type Filter map[string]any

// And combines filters into a conjunction node.
func And(children ...Filter) Filter {
	return Filter{"and": children}
}

// Or combines filters into a disjunction node.
func Or(children ...Filter) Filter {
	return Filter{"or": children}
}

// Conjunction returns the child filters if f is an "and" node.
func (f Filter) Conjunction() ([]Filter, bool) {
	children, ok := f["and"].([]Filter)
	return children, ok
}

// Disjunction returns the child filters if f is an "or" node.
func (f Filter) Disjunction() ([]Filter, bool) {
	children, ok := f["or"].([]Filter)
	return children, ok
}
