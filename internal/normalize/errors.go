package normalize

import "fmt"

// UnknownColumnError reports a rule or type entry naming a column the table
// does not have. Suggestion is the closest existing column, if any is close.
type UnknownColumnError struct {
	Column     string
	Suggestion string
}

func (e *UnknownColumnError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown column %q (did you mean %q?)", e.Column, e.Suggestion)
	}
	return fmt.Sprintf("unknown column %q", e.Column)
}

// DuplicateRuleError reports a column touched by more than one rule.
type DuplicateRuleError struct {
	Column string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("column %q has more than one repair rule", e.Column)
}

// DuplicateTypeError reports two type entries that name the same column.
type DuplicateTypeError struct {
	Column string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("column %q has more than one declared type", e.Column)
}

// RuleError reports a rule that cannot be applied as written.
type RuleError struct {
	Index  int
	Column string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d (column %q): %s", e.Index+1, e.Column, e.Reason)
}
