package model

// ResultSet collects provision results keyed by ref while preserving the
// declaration order of the specs that produced them. It is not synchronized;
// concurrent writers must hold their own lock.
type ResultSet struct {
	order   []ResourceRef
	results map[ResourceRef]*ProvisionResult
}

func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[ResourceRef]*ProvisionResult)}
}

// Add records a result. Adding the same ref twice replaces the earlier result
// without duplicating it in the iteration order.
func (s *ResultSet) Add(res *ProvisionResult) {
	if _, seen := s.results[res.Ref]; !seen {
		s.order = append(s.order, res.Ref)
	}
	s.results[res.Ref] = res
}

// Get looks up the result for a ref.
func (s *ResultSet) Get(ref ResourceRef) (*ProvisionResult, bool) {
	res, ok := s.results[ref]
	return res, ok
}

// All returns results in declaration order.
func (s *ResultSet) All() []*ProvisionResult {
	out := make([]*ProvisionResult, 0, len(s.order))
	for _, ref := range s.order {
		out = append(out, s.results[ref])
	}
	return out
}

// Failed returns the failed subset in declaration order.
func (s *ResultSet) Failed() []*ProvisionResult {
	var out []*ProvisionResult
	for _, ref := range s.order {
		if res := s.results[ref]; res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

func (s *ResultSet) Len() int {
	return len(s.order)
}
