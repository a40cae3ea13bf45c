package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/gotabular/internal/extract"
	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/normalize"
	"github.com/hyperifyio/gotabular/internal/pipeline"
	"github.com/hyperifyio/gotabular/internal/query"
	"github.com/hyperifyio/gotabular/internal/table"
)

// IsQuery reports whether the job reads a database table instead of a URL.
func (s JobSpec) IsQuery() bool { return s.Database != nil }

func (s JobSpec) validate() error {
	hasURL := strings.TrimSpace(s.URL) != ""
	switch {
	case hasURL && s.IsQuery():
		return errors.New("url and database are mutually exclusive")
	case s.IsQuery():
		if strings.TrimSpace(s.Table) == "" {
			return errors.New("table is required with database")
		}
	case hasURL:
		if (s.CSS != "") == (s.Path != nil) {
			return errors.New("exactly one of css or path is required")
		}
	default:
		return errors.New("url or database is required")
	}
	return nil
}

// Selector returns the job's selector.
func (s JobSpec) Selector() extract.Selector {
	if s.Path != nil {
		return extract.KeyPath(*s.Path)
	}
	return extract.CSS(s.CSS)
}

// BuildJob turns a URL job spec into a pipeline job.
func BuildJob(s JobSpec) (pipeline.Job, error) {
	if err := s.validate(); err != nil {
		return pipeline.Job{}, err
	}
	if s.IsQuery() {
		return pipeline.Job{}, fmt.Errorf("job %q reads a database", s.Name)
	}
	opt := normalize.Options{DateLayouts: s.DateLayouts}
	rules, err := BuildRules(s.Rules, opt)
	if err != nil {
		return pipeline.Job{}, err
	}
	types, err := BuildTypes(s.Types)
	if err != nil {
		return pipeline.Job{}, err
	}
	return pipeline.Job{
		Name:            s.Name,
		Request:         fetch.Request{URL: s.URL, Query: s.Query, Header: s.Headers},
		Selector:        s.Selector(),
		Rules:           rules,
		Types:           types,
		Options:         opt,
		AcceptErrorBody: s.AcceptErrorBody,
	}, nil
}

// BuildQueryJob turns a database job spec into a pipeline query job.
func BuildQueryJob(s JobSpec) (pipeline.QueryJob, error) {
	if err := s.validate(); err != nil {
		return pipeline.QueryJob{}, err
	}
	if !s.IsQuery() {
		return pipeline.QueryJob{}, fmt.Errorf("job %q reads a url", s.Name)
	}
	plan, err := BuildPlan(s)
	if err != nil {
		return pipeline.QueryJob{}, err
	}
	opt := normalize.Options{DateLayouts: s.DateLayouts}
	rules, err := BuildRules(s.Rules, opt)
	if err != nil {
		return pipeline.QueryJob{}, err
	}
	types, err := BuildTypes(s.Types)
	if err != nil {
		return pipeline.QueryJob{}, err
	}
	return pipeline.QueryJob{Name: s.Name, Plan: plan, Rules: rules, Types: types, Options: opt}, nil
}

// BuildPlan assembles the query plan of a database job.
func BuildPlan(s JobSpec) (query.Plan, error) {
	p := query.From(s.Table)
	if len(s.Select) > 0 {
		p = p.Select(s.Select...)
	}
	for i, w := range s.Where {
		op, err := query.ParseOp(w.Op)
		if err != nil {
			return p, fmt.Errorf("where[%d]: %w", i, err)
		}
		var v any
		if op != query.IsNull && op != query.NotNull {
			v = w.Value
		}
		p = p.Where(w.Column, op, v)
	}
	if s.OrderBy != "" {
		p = p.OrderBy(s.OrderBy, s.Desc)
	}
	if s.Limit > 0 {
		p = p.Limit(s.Limit)
	}
	return p, nil
}

// BuildTypes parses declared column types.
func BuildTypes(m map[string]string) (map[string]table.Type, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]table.Type, len(m))
	for col, name := range m {
		t, err := table.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("types.%s: %w", col, err)
		}
		out[col] = t
	}
	return out, nil
}

// BuildRules decodes rule specs. opt is used by "parses" predicates so they
// accept the same date layouts as coercion.
func BuildRules(specs []RuleSpec, opt normalize.Options) ([]normalize.Rule, error) {
	rules := make([]normalize.Rule, 0, len(specs))
	for i, s := range specs {
		when, err := buildPredicate(s.When, opt)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): when: %w", i, s.Column, err)
		}
		then, err := buildPolicy(s.Then)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): then: %w", i, s.Column, err)
		}
		rules = append(rules, normalize.Rule{Column: s.Column, When: when, Then: then})
	}
	return rules, nil
}

func buildPredicate(w WhenSpec, opt normalize.Options) (normalize.Predicate, error) {
	var preds []normalize.Predicate
	if w.Blank {
		preds = append(preds, normalize.Blank())
	}
	if w.Equals != nil {
		preds = append(preds, normalize.Equals(*w.Equals))
	}
	if len(w.OneOf) > 0 {
		preds = append(preds, normalize.OneOf(w.OneOf...))
	}
	if w.Matches != "" {
		re, err := regexp.Compile(w.Matches)
		if err != nil {
			return nil, fmt.Errorf("matches: %w", err)
		}
		preds = append(preds, normalize.Matches(re))
	}
	if w.Parses != "" {
		t, err := table.ParseType(w.Parses)
		if err != nil {
			return nil, fmt.Errorf("parses: %w", err)
		}
		preds = append(preds, normalize.ParsesAs(t, opt))
	}
	if w.Not != nil {
		inner, err := buildPredicate(*w.Not, opt)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		preds = append(preds, normalize.Not(inner))
	}
	if len(preds) != 1 {
		return nil, fmt.Errorf("exactly one predicate is required, got %d", len(preds))
	}
	return preds[0], nil
}

func buildPolicy(t ThenSpec) (normalize.Policy, error) {
	n := 0
	var p normalize.Policy
	if t.Swap != "" {
		n++
		p = normalize.SwapWith(t.Swap)
	}
	if t.CarryForward {
		n++
		p = normalize.CarryForward()
	}
	if t.SetAbsent {
		n++
		p = normalize.SetAbsent()
	}
	if n != 1 {
		return p, fmt.Errorf("exactly one policy is required, got %d", n)
	}
	return p, nil
}
