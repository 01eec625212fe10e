package cambium

import (
	"fmt"
	"regexp"
)

// ConstraintKind tags the variant held by a Constraint.
type ConstraintKind int

const (
	ConstraintEq ConstraintKind = iota
	ConstraintNotEq
	ConstraintIn
	ConstraintPresent
	ConstraintAbsent
	ConstraintRegex
)

// Constraint is a single condition over one property key. Build instances
// with the Eq, NotEq, In, Present, Absent, and Regex constructors rather
// than the struct literal directly, since Regex compiles its pattern at
// construction time.
type Constraint struct {
	kind    ConstraintKind
	key     string
	value   PropertyValue
	set     []PropertyValue
	pattern string
	re      *regexp.Regexp
}

// Key returns the property key the constraint examines.
func (c Constraint) Key() string { return c.key }

// Kind returns the constraint's variant.
func (c Constraint) Kind() ConstraintKind { return c.kind }

// Value returns the comparison value for an Eq or NotEq constraint. It is
// the zero PropertyValue for every other kind.
func (c Constraint) Value() PropertyValue { return c.value }

// Set returns the candidate values for an In constraint, in declaration
// order. It is nil for every other kind.
func (c Constraint) Set() []PropertyValue {
	out := make([]PropertyValue, len(c.set))
	copy(out, c.set)
	return out
}

// Pattern returns the uncompiled regex source for a Regex constraint. It
// is empty for every other kind.
func (c Constraint) Pattern() string { return c.pattern }

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintEq:
		return "eq"
	case ConstraintNotEq:
		return "not-eq"
	case ConstraintIn:
		return "in"
	case ConstraintPresent:
		return "present"
	case ConstraintAbsent:
		return "absent"
	case ConstraintRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Eq builds an Eq(key, value) constraint: the key must be present and
// equal to value.
func Eq(key string, value PropertyValue) Constraint {
	return Constraint{kind: ConstraintEq, key: key, value: value}
}

// NotEq builds a NotEq(key, value) constraint: the key must be absent, or
// present with a different value. Absence satisfies NotEq by design, which
// lets a pattern like NotEq(format, "json") plan through inputs whose
// format is unknown.
func NotEq(key string, value PropertyValue) Constraint {
	return Constraint{kind: ConstraintNotEq, key: key, value: value}
}

// In builds an In(key, set) constraint: the key must be present and equal
// to one of the values in set.
func In(key string, set []PropertyValue) Constraint {
	cp := make([]PropertyValue, len(set))
	copy(cp, set)
	return Constraint{kind: ConstraintIn, key: key, set: cp}
}

// Present builds a Present(key) constraint.
func Present(key string) Constraint {
	return Constraint{kind: ConstraintPresent, key: key}
}

// Absent builds an Absent(key) constraint.
func Absent(key string) Constraint {
	return Constraint{kind: ConstraintAbsent, key: key}
}

// Regex builds a Regex(key, pattern) constraint: the key must hold a
// string value matching pattern in full (anchored). The pattern is
// compiled here, at construction, and cached on the Constraint so Matches
// never pays compilation cost; a malformed pattern is reported immediately
// as an *InvalidRegexError rather than surfacing at match time.
func Regex(key, pattern string) (Constraint, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return Constraint{}, &InvalidRegexError{Key: key, Pattern: pattern, Cause: err}
	}
	return Constraint{kind: ConstraintRegex, key: key, pattern: pattern, re: re}, nil
}

// String renders a human-readable form, used for trace output and demo
// listings.
func (c Constraint) String() string {
	switch c.kind {
	case ConstraintEq:
		return fmt.Sprintf("%s=%s", c.key, c.value)
	case ConstraintNotEq:
		return fmt.Sprintf("%s!=%s", c.key, c.value)
	case ConstraintIn:
		return fmt.Sprintf("%s in %v", c.key, c.set)
	case ConstraintPresent:
		return fmt.Sprintf("%s?", c.key)
	case ConstraintAbsent:
		return fmt.Sprintf("!%s?", c.key)
	case ConstraintRegex:
		return fmt.Sprintf("%s~=%q", c.key, c.pattern)
	default:
		return c.key
	}
}

// MustRegex is like Regex but panics on a malformed pattern; intended for
// constructing patterns from compile-time-known literals.
func MustRegex(key, pattern string) Constraint {
	c, err := Regex(key, pattern)
	if err != nil {
		panic(err)
	}
	return c
}

// matches evaluates a single constraint against props.
func (c Constraint) matches(props Properties) bool {
	switch c.kind {
	case ConstraintEq:
		v, ok := props.Get(c.key)
		return ok && v.Equal(c.value)
	case ConstraintNotEq:
		v, ok := props.Get(c.key)
		if !ok {
			return true
		}
		return !v.Equal(c.value)
	case ConstraintIn:
		v, ok := props.Get(c.key)
		if !ok {
			return false
		}
		for _, candidate := range c.set {
			if v.Equal(candidate) {
				return true
			}
		}
		return false
	case ConstraintPresent:
		return props.Has(c.key)
	case ConstraintAbsent:
		return !props.Has(c.key)
	case ConstraintRegex:
		v, ok := props.Get(c.key)
		if !ok {
			return false
		}
		s, ok := v.AsString()
		if !ok {
			return false
		}
		return c.re.MatchString(s)
	default:
		return false
	}
}

// PropertyPattern is an ordered conjunction of Constraints. A pattern
// matches a Properties bag iff every constraint holds.
type PropertyPattern struct {
	constraints []Constraint
}

// NewPattern builds a pattern from the given constraints, evaluated in the
// order given so that, e.g., regex errors at construction time (not match
// time) surface predictably. The resulting Matches result is
// order-independent since every constraint must hold (conjunction).
func NewPattern(constraints ...Constraint) PropertyPattern {
	cp := make([]Constraint, len(constraints))
	copy(cp, constraints)
	return PropertyPattern{constraints: cp}
}

// Any returns a pattern that matches every bag.
func Any() PropertyPattern { return PropertyPattern{} }

// Constraints returns the pattern's constraints in declaration order.
func (p PropertyPattern) Constraints() []Constraint {
	out := make([]Constraint, len(p.constraints))
	copy(out, p.constraints)
	return out
}

// Matches reports whether props satisfies every constraint in p.
func (p PropertyPattern) Matches(props Properties) bool {
	for _, c := range p.constraints {
		if !c.matches(props) {
			return false
		}
	}
	return true
}

// Apply derives an output bag from props using p as a produces-pattern:
// starting from props, every Eq(k, v) sets k := v, and every Absent(k)
// removes k. NotEq/In/Regex/Present are ignored, since they describe
// conditions rather than assignments. In particular In(k, S) never sets
// k to a member of S — see DESIGN.md for the reasoning.
func (p PropertyPattern) Apply(props Properties) Properties {
	out := props
	for _, c := range p.constraints {
		switch c.kind {
		case ConstraintEq:
			out = out.Set(c.key, c.value)
		case ConstraintAbsent:
			out = out.Remove(c.key)
		}
	}
	return out
}
