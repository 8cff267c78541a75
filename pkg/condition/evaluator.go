package condition

import "strings"

// Evaluator narrows target frameworks for a single manifest run. It binds
// one variable, shares compiled expressions through a Cache and memoises
// results for the lifetime of the run. It is not safe for concurrent use.
type Evaluator struct {
	cache    *Cache
	variable string
	base     Properties
	results  map[resultKey]bool
}

type resultKey struct {
	value, expression string
}

// NewEvaluator returns an Evaluator binding variable. A nil cache uses the
// process-wide one. base supplies the other properties the manifest
// declares.
func NewEvaluator(cache *Cache, variable string, base Properties) *Evaluator {
	if cache == nil {
		cache = defaultCache
	}
	return &Evaluator{
		cache:    cache,
		variable: variable,
		base:     base,
		results:  make(map[resultKey]bool),
	}
}

// Evaluate reports whether expression holds with the variable bound to
// value.
func (e *Evaluator) Evaluate(expression, value string) (bool, error) {
	key := resultKey{value: strings.ToLower(value), expression: strings.TrimSpace(expression)}
	if v, ok := e.results[key]; ok {
		return v, nil
	}

	expr, err := e.cache.Compile(expression)
	if err != nil {
		return false, err
	}
	props := make(Properties, len(e.base)+1)
	for k, v := range e.base {
		props[k] = v
	}
	for k := range props {
		if strings.EqualFold(k, e.variable) {
			delete(props, k)
		}
	}
	props[e.variable] = value

	ok, err := expr.Eval(props)
	if err != nil {
		return false, err
	}
	e.results[key] = ok
	return ok, nil
}

// Narrow returns the frameworks for which every condition holds, keeping
// their order. Without conditions all frameworks are returned.
func (e *Evaluator) Narrow(frameworks, conditions []string) ([]string, error) {
	if len(conditions) == 0 {
		return frameworks, nil
	}
	out := make([]string, 0, len(frameworks))
	for _, fw := range frameworks {
		keep := true
		for _, c := range conditions {
			ok, err := e.Evaluate(c, fw)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, fw)
		}
	}
	return out, nil
}
