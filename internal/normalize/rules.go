package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/gotabular/internal/table"
)

// Rule repairs one column: when its cell matches When, Then rewrites it.
type Rule struct {
	Column string
	When   Predicate
	Then   Policy
}

func (r Rule) String() string {
	return fmt.Sprintf("%s: when %v then %v", r.Column, r.When, r.Then)
}

// Predicate detects a known-bad cell. The set is closed; build one with the
// constructors in this package.
type Predicate interface {
	Match(cell table.Text) bool
	String() string
	predicate()
}

type blankPred struct{}

// Blank matches absent cells and cells holding only whitespace.
func Blank() Predicate { return blankPred{} }

func (blankPred) Match(c table.Text) bool { return c.Blank() }
func (blankPred) String() string          { return "blank" }
func (blankPred) predicate()              {}

type equalsPred struct{ vals []string }

// Equals matches a present cell whose trimmed text equals s.
func Equals(s string) Predicate { return equalsPred{vals: []string{s}} }

// OneOf matches a present cell whose trimmed text equals any of vals.
func OneOf(vals ...string) Predicate { return equalsPred{vals: append([]string(nil), vals...)} }

func (p equalsPred) Match(c table.Text) bool {
	if !c.Valid {
		return false
	}
	s := strings.TrimSpace(c.S)
	for _, v := range p.vals {
		if s == strings.TrimSpace(v) {
			return true
		}
	}
	return false
}

func (p equalsPred) String() string {
	if len(p.vals) == 1 {
		return fmt.Sprintf("equals %q", p.vals[0])
	}
	return fmt.Sprintf("one of %q", p.vals)
}
func (equalsPred) predicate() {}

type matchesPred struct{ re *regexp.Regexp }

// Matches matches a present cell whose text matches re.
func Matches(re *regexp.Regexp) Predicate { return matchesPred{re: re} }

func (p matchesPred) Match(c table.Text) bool { return c.Valid && p.re != nil && p.re.MatchString(c.S) }
func (p matchesPred) String() string {
	if p.re == nil {
		return "matches <nil>"
	}
	return fmt.Sprintf("matches /%s/", p.re.String())
}
func (matchesPred) predicate() {}

type parsesPred struct {
	typ table.Type
	opt Options
}

// ParsesAs matches a non-blank cell that coerces cleanly to t. ParsesAs(TypeReal)
// on a name column flags a number that landed in the wrong field.
func ParsesAs(t table.Type, opt Options) Predicate { return parsesPred{typ: t, opt: opt} }

func (p parsesPred) Match(c table.Text) bool {
	_, ok := coerce(p.typ, c, p.opt)
	return ok
}
func (p parsesPred) String() string { return "parses as " + p.typ.String() }
func (parsesPred) predicate()       {}

type notPred struct{ p Predicate }

// Not inverts p.
func Not(p Predicate) Predicate { return notPred{p: p} }

func (n notPred) Match(c table.Text) bool { return n.p != nil && !n.p.Match(c) }
func (n notPred) String() string          { return fmt.Sprintf("not (%v)", n.p) }
func (notPred) predicate()                {}

type policyKind int

const (
	policyNone policyKind = iota
	policyCarryForward
	policySwap
	policyAbsent
)

// Policy says how a detected cell is rewritten. The zero Policy is invalid.
type Policy struct {
	kind    policyKind
	partner string
}

// CarryForward copies the same column from the preceding row, as already
// repaired. On the first row the cell is left unchanged.
func CarryForward() Policy { return Policy{kind: policyCarryForward} }

// SwapWith exchanges the cell with column col of the same row.
func SwapWith(col string) Policy { return Policy{kind: policySwap, partner: col} }

// SetAbsent clears the cell.
func SetAbsent() Policy { return Policy{kind: policyAbsent} }

// Partner returns the other column of a swap, or "".
func (p Policy) Partner() string { return p.partner }

func (p Policy) String() string {
	switch p.kind {
	case policyCarryForward:
		return "carry forward"
	case policySwap:
		return "swap with " + p.partner
	case policyAbsent:
		return "set absent"
	}
	return "none"
}
