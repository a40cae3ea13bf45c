// Package normalize repairs known-bad rows of a RawTable and coerces its
// columns to declared types.
//
// Normalization is two phases over the rows in document order. The repair
// phase applies the rules to each row; a rule may read the current row and
// the already repaired previous row, never a later one. The coercion phase
// parses every cell as its column's type. A cell that is absent, blank or
// unparseable becomes the column's missing marker and is counted; it never
// fails the call. Only configuration problems fail, and they are reported
// before any row is touched.
package normalize

import (
	"fmt"
	"sort"

	"github.com/antzucaro/matchr"

	"github.com/hyperifyio/gotabular/internal/table"
)

// Result is the outcome of one normalization.
type Result struct {
	Table *table.Typed
	// Missing counts missing cells per column; every column has an entry.
	Missing map[string]int
	// Repairs counts rewritten cells per rule column.
	Repairs map[string]int
}

// TotalMissing sums Missing.
func (r *Result) TotalMissing() int {
	n := 0
	for _, v := range r.Missing {
		n += v
	}
	return n
}

type compiledRule struct {
	col     int
	partner int
	when    Predicate
	then    Policy
}

// Normalize repairs raw with rules and coerces it to types. Column names in
// rules and types may be given raw or cleaned; columns without a type are
// text. raw is not modified.
func Normalize(raw *table.Raw, rules []Rule, types map[string]table.Type, opt Options) (*Result, error) {
	if raw == nil {
		raw = table.NewRaw()
	}
	colTypes, err := compileTypes(raw, types)
	if err != nil {
		return nil, err
	}
	compiled, err := compileRules(raw, rules)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Missing: make(map[string]int, len(raw.Columns)),
		Repairs: make(map[string]int, len(compiled)),
	}
	for _, c := range raw.Columns {
		res.Missing[c] = 0
	}
	for _, cr := range compiled {
		res.Repairs[raw.Columns[cr.col]] = 0
	}

	width := len(raw.Columns)
	rows := make([]table.RawRow, len(raw.Rows))
	for i, src := range raw.Rows {
		row := make(table.RawRow, width)
		copy(row, src)
		rows[i] = row
	}

	// Repair.
	for i, row := range rows {
		for _, cr := range compiled {
			if !cr.when.Match(row[cr.col]) {
				continue
			}
			switch cr.then.kind {
			case policyCarryForward:
				if i == 0 {
					continue
				}
				row[cr.col] = rows[i-1][cr.col]
			case policySwap:
				row[cr.col], row[cr.partner] = row[cr.partner], row[cr.col]
			case policyAbsent:
				row[cr.col] = table.Absent()
			}
			res.Repairs[raw.Columns[cr.col]]++
		}
	}

	// Coerce.
	out := &table.Typed{Columns: make([]table.Column, width), Rows: make([][]table.Value, len(rows))}
	for j, name := range raw.Columns {
		out.Columns[j] = table.Column{Name: name, Type: colTypes[j]}
	}
	for i, row := range rows {
		vals := make([]table.Value, width)
		for j, cell := range row {
			v, ok := coerce(colTypes[j], cell, opt)
			if !ok {
				res.Missing[raw.Columns[j]]++
			}
			vals[j] = v
		}
		out.Rows[i] = vals
	}
	res.Table = out
	return res, nil
}

func compileTypes(raw *table.Raw, types map[string]table.Type) ([]table.Type, error) {
	colTypes := make([]table.Type, len(raw.Columns))
	seen := make(map[int]bool, len(types))
	for _, name := range sortedKeys(types) {
		t := types[name]
		if t < table.TypeText || t > table.TypeDate {
			return nil, fmt.Errorf("column %q: unsupported type %d", name, int(t))
		}
		idx := lookup(raw, name)
		if idx < 0 {
			return nil, unknownColumn(raw, name)
		}
		if seen[idx] {
			return nil, &DuplicateTypeError{Column: raw.Columns[idx]}
		}
		seen[idx] = true
		colTypes[idx] = t
	}
	return colTypes, nil
}

func compileRules(raw *table.Raw, rules []Rule) ([]compiledRule, error) {
	touched := make(map[int]bool, len(rules))
	out := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.When == nil {
			return nil, &RuleError{Index: i, Column: r.Column, Reason: "missing predicate"}
		}
		if r.Then.kind == policyNone {
			return nil, &RuleError{Index: i, Column: r.Column, Reason: "missing policy"}
		}
		idx := lookup(raw, r.Column)
		if idx < 0 {
			return nil, unknownColumn(raw, r.Column)
		}
		if touched[idx] {
			return nil, &DuplicateRuleError{Column: raw.Columns[idx]}
		}
		touched[idx] = true
		cr := compiledRule{col: idx, partner: -1, when: r.When, then: r.Then}
		if r.Then.kind == policySwap {
			p := lookup(raw, r.Then.partner)
			if p < 0 {
				return nil, unknownColumn(raw, r.Then.partner)
			}
			if p == idx {
				return nil, &RuleError{Index: i, Column: r.Column, Reason: "cannot swap a column with itself"}
			}
			if touched[p] {
				return nil, &DuplicateRuleError{Column: raw.Columns[p]}
			}
			touched[p] = true
			cr.partner = p
		}
		out = append(out, cr)
	}
	return out, nil
}

// lookup finds name as given, then in its cleaned form.
func lookup(raw *table.Raw, name string) int {
	if i := raw.Column(name); i >= 0 {
		return i
	}
	return raw.Column(table.CleanName(name))
}

const suggestThreshold = 0.8

func unknownColumn(raw *table.Raw, name string) error {
	clean := table.CleanName(name)
	best, bestScore := "", 0.0
	for _, c := range raw.Columns {
		if s := matchr.JaroWinkler(clean, c, false); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < suggestThreshold {
		best = ""
	}
	return &UnknownColumnError{Column: name, Suggestion: best}
}

func sortedKeys(m map[string]table.Type) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
