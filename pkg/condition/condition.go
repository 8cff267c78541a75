package condition

import (
	"strings"
	"sync"

	"github.com/matzehuels/refbump/pkg/errors"
)

// TargetFramework is the property that framework narrowing binds.
const TargetFramework = "TargetFramework"

// Properties resolves property references. Lookups are case-insensitive
// and unknown names expand to the empty string.
type Properties map[string]string

func (p Properties) lookup(name string) string {
	if v, ok := p[name]; ok {
		return v
	}
	for k, v := range p {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

type segment struct {
	literal  string
	property string
	isRef    bool
}

type operand []segment

func (o operand) expand(props Properties) string {
	if len(o) == 1 && !o[0].isRef {
		return o[0].literal
	}
	var sb strings.Builder
	for _, s := range o {
		if s.isRef {
			sb.WriteString(props.lookup(s.property))
		} else {
			sb.WriteString(s.literal)
		}
	}
	return sb.String()
}

type node interface {
	eval(props Properties) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(props Properties) (bool, error) {
	l, err := n.left.eval(props)
	if err != nil || l {
		return l, err
	}
	return n.right.eval(props)
}

type andNode struct{ left, right node }

func (n andNode) eval(props Properties) (bool, error) {
	l, err := n.left.eval(props)
	if err != nil || !l {
		return false, err
	}
	return n.right.eval(props)
}

type notNode struct{ x node }

func (n notNode) eval(props Properties) (bool, error) {
	v, err := n.x.eval(props)
	return !v, err
}

type compareNode struct {
	left, right operand
	negate      bool
}

func (n compareNode) eval(props Properties) (bool, error) {
	eq := strings.EqualFold(strings.TrimSpace(n.left.expand(props)), strings.TrimSpace(n.right.expand(props)))
	return eq != n.negate, nil
}

type boolNode struct{ x operand }

func (n boolNode) eval(props Properties) (bool, error) {
	s := strings.TrimSpace(n.x.expand(props))
	switch strings.ToLower(s) {
	case "true", "on", "yes", "!false", "!off", "!no":
		return true, nil
	case "false", "off", "no", "!true", "!on", "!yes":
		return false, nil
	}
	return false, errors.New(errors.ErrCodeInvalidCondition, "%q does not evaluate to a boolean", s)
}

// Expr is a compiled condition.
type Expr struct {
	text string
	root node
}

// Compile parses a condition. An empty or blank condition always holds.
func Compile(expression string) (*Expr, error) {
	text := strings.TrimSpace(expression)
	if text == "" {
		return &Expr{}, nil
	}
	root, err := parse(text)
	if err != nil {
		return nil, err
	}
	return &Expr{text: text, root: root}, nil
}

// String returns the normalised source text.
func (e *Expr) String() string { return e.text }

// Eval evaluates e against props.
func (e *Expr) Eval(props Properties) (bool, error) {
	if e.root == nil {
		return true, nil
	}
	return e.root.eval(props)
}

// Cache memoises compiled conditions by their source text. It is safe for
// concurrent use and compiles each distinct expression at most once.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	expr *Expr
	err  error
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Compile returns the compiled form of expression, parsing it on first use.
func (c *Cache) Compile(expression string) (*Expr, error) {
	key := strings.TrimSpace(expression)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.expr, e.err = Compile(key)
	})
	return e.expr, e.err
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var defaultCache = NewCache()

// Evaluate evaluates expression with variable bound to value, using a
// process-wide compile cache.
func Evaluate(expression, variable, value string) (bool, error) {
	expr, err := defaultCache.Compile(expression)
	if err != nil {
		return false, err
	}
	return expr.Eval(Properties{variable: value})
}
