// Package expr implements the condition grammar used by CONDITIONAL
// Reference Nodes and LOOP break conditions: ${var} substitution followed
// by a single numeric comparison (<, <=, >, >=) or a quote-stripped string
// equality (==, !=).
//
// This is deliberately NOT a general expression language — no CEL, no
// boolean combinators, no function calls. The teacher's condition package
// reaches for github.com/google/cel-go, but CEL's error-on-bad-input
// semantics and its unquoted-string literal model don't match the required
// behavior here: an expression that fails to evaluate (unknown variable,
// non-numeric comparison operand) must resolve to false, not propagate an
// error, and string literals in the expression are written quoted
// ('done' or "done") and must have their quotes stripped before comparison.
// Only the teacher's cache-behind-RWMutex shape is reused.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// compiled is the parsed, reusable form of one expression: its substitution
// template plus the comparison to apply after substitution.
type compiled struct {
	template string
	op       string
	lhsRaw   string
	rhsRaw   string
}

// Evaluator evaluates expressions against a variable map, caching parsed
// expressions behind a RWMutex the way condition.Evaluator caches compiled
// CEL programs.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*compiled
}

// NewEvaluator returns a ready-to-use Evaluator with an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*compiled)}
}

var comparisonOps = []string{"<=", ">=", "==", "!=", "<", ">"}

// Evaluate substitutes ${var} references in expr from vars, then applies
// the trailing comparison. Any failure — an unparsable expression, an
// unknown variable, a non-numeric operand in a numeric comparison — yields
// (false, nil): per spec, conditions fail silently rather than erroring.
func (e *Evaluator) Evaluate(expr string, vars map[string]interface{}) (bool, error) {
	c, err := e.compile(expr)
	if err != nil {
		return false, nil
	}

	lhs := substitute(c.lhsRaw, vars)
	rhs := substitute(c.rhsRaw, vars)

	switch c.op {
	case "==", "!=":
		lhs = stripQuotes(lhs)
		rhs = stripQuotes(rhs)
		eq := lhs == rhs
		if c.op == "!=" {
			return !eq, nil
		}
		return eq, nil
	case "<", "<=", ">", ">=":
		lf, lok := parseNumber(lhs)
		rf, rok := parseNumber(rhs)
		if !lok || !rok {
			return false, nil
		}
		switch c.op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	return false, nil
}

// ClearCache drops every cached compiled expression.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*compiled)
}

// CacheSize reports how many distinct expressions are currently cached.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

func (e *Evaluator) compile(expr string) (*compiled, error) {
	e.mu.RLock()
	c, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := parse(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expr] = c
	e.mu.Unlock()
	return c, nil
}

// parse splits expr on its first recognized comparison operator. Operators
// are checked two-character-first so "<=" isn't mis-split as "<".
func parse(expr string) (*compiled, error) {
	trimmed := strings.TrimSpace(expr)
	for _, op := range comparisonOps {
		if idx := strings.Index(trimmed, op); idx >= 0 {
			return &compiled{
				template: trimmed,
				op:       op,
				lhsRaw:   strings.TrimSpace(trimmed[:idx]),
				rhsRaw:   strings.TrimSpace(trimmed[idx+len(op):]),
			}, nil
		}
	}
	return nil, fmt.Errorf("expr: no comparison operator found in %q", expr)
}

// substitute replaces every ${name} occurrence in s with the string form of
// vars[name]. An unresolved reference is left untouched, which downstream
// numeric parsing or quote-stripped comparison will simply fail to match —
// producing the required silent-false rather than a lookup error.
func substitute(s string, vars map[string]interface{}) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end >= 0 {
				name := s[i+2 : i+2+end]
				if v, ok := vars[name]; ok {
					b.WriteString(toString(v))
				} else {
					b.WriteString(s[i : i+2+end+1])
				}
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
