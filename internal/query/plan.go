// Package query builds relational queries as immutable plans and runs them
// in one explicit call, handing rows back as a RawTable.
package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Op is a comparison in a Where clause.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
	Like
	IsNull
	NotNull
)

var opSQL = map[Op]string{
	Eq: "=", Ne: "<>", Lt: "<", Le: "<=", Gt: ">", Ge: ">=", Like: "LIKE",
	IsNull: "IS NULL", NotNull: "IS NOT NULL",
}

// ParseOp maps the textual forms accepted on the command line.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "==", "eq":
		return Eq, nil
	case "!=", "<>", "ne":
		return Ne, nil
	case "<", "lt":
		return Lt, nil
	case "<=", "le":
		return Le, nil
	case ">", "gt":
		return Gt, nil
	case ">=", "ge":
		return Ge, nil
	case "~", "like":
		return Like, nil
	case "null", "is null":
		return IsNull, nil
	case "notnull", "is not null":
		return NotNull, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Dialect selects placeholder style.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

type cond struct {
	col   string
	op    Op
	value any
}

type orderKey struct {
	col  string
	desc bool
}

// Plan is an immutable query description. Every builder method returns a
// new Plan and leaves the receiver unchanged, so plans can be shared and
// extended freely.
type Plan struct {
	table   string
	columns []string
	conds   []cond
	order   []orderKey
	limit   int
	limited bool
}

// From starts a plan over one table.
func From(table string) Plan { return Plan{table: table} }

// Select restricts the result to cols, appended to any earlier selection.
func (p Plan) Select(cols ...string) Plan {
	p.columns = append(slices.Clip(p.columns), cols...)
	return p
}

// Where adds a condition; conditions are joined with AND. value is ignored
// for IsNull and NotNull.
func (p Plan) Where(col string, op Op, value any) Plan {
	p.conds = append(slices.Clip(p.conds), cond{col: col, op: op, value: value})
	return p
}

// OrderBy adds a sort key.
func (p Plan) OrderBy(col string, desc bool) Plan {
	p.order = append(slices.Clip(p.order), orderKey{col: col, desc: desc})
	return p
}

// Limit caps the row count.
func (p Plan) Limit(n int) Plan {
	p.limit = n
	p.limited = true
	return p
}

// Table returns the plan's source table.
func (p Plan) Table() string { return p.table }

// PlanError reports a plan that cannot be translated.
type PlanError struct {
	Table  string
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("query on %q: %s", e.Table, e.Reason)
}

// SQL translates the plan. Identifiers are quoted and values are bound as
// arguments, never inlined.
func (p Plan) SQL(d Dialect) (string, []any, error) {
	if strings.TrimSpace(p.table) == "" {
		return "", nil, &PlanError{Table: p.table, Reason: "no table"}
	}
	var b strings.Builder
	var args []any
	b.WriteString("SELECT ")
	if len(p.columns) == 0 {
		b.WriteString("*")
	}
	for i, c := range p.columns {
		if strings.TrimSpace(c) == "" {
			return "", nil, &PlanError{Table: p.table, Reason: "empty column name in select"}
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(p.table))

	for i, c := range p.conds {
		if strings.TrimSpace(c.col) == "" {
			return "", nil, &PlanError{Table: p.table, Reason: "empty column name in where"}
		}
		op, ok := opSQL[c.op]
		if !ok {
			return "", nil, &PlanError{Table: p.table, Reason: fmt.Sprintf("unknown operator %d", int(c.op))}
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(quoteIdent(c.col))
		b.WriteString(" ")
		b.WriteString(op)
		if c.op == IsNull || c.op == NotNull {
			continue
		}
		args = append(args, c.value)
		b.WriteString(" ")
		b.WriteString(placeholder(d, len(args)))
	}

	for i, o := range p.order {
		if strings.TrimSpace(o.col) == "" {
			return "", nil, &PlanError{Table: p.table, Reason: "empty column name in order by"}
		}
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(o.col))
		if o.desc {
			b.WriteString(" DESC")
		}
	}

	if p.limited {
		if p.limit < 0 {
			return "", nil, &PlanError{Table: p.table, Reason: "negative limit"}
		}
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(p.limit))
	}
	return b.String(), args, nil
}

func (p Plan) String() string {
	s, _, err := p.SQL(SQLite)
	if err != nil {
		return "invalid plan: " + err.Error()
	}
	return s
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func placeholder(d Dialect, n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
