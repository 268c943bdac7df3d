package rule

import (
	"context"
	"regexp"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/draftlint/internal/syntax"
)

// directivePattern matches suppression comments:
//
//	// draftlint-disable-next-line [rule, ...] [-- reason]
//	/* draftlint-disable-line [rule, ...] */
var directivePattern = regexp.MustCompile(`^(?://|/\*)\s*draftlint-disable-(next-line|line)\b(.*?)(?:\*/)?$`)

// suppressions maps a 1-based line to the rules silenced on it. A nil rule
// list silences every rule.
type suppressions map[int][]string

// add records the directive in comment, if any, starting at line.
func (s suppressions) add(comment string, line int) {
	matches := directivePattern.FindStringSubmatch(strings.TrimSpace(comment))
	if matches == nil {
		return
	}
	target := line
	if matches[1] == "next-line" {
		target = line + 1
	}

	rules := parseRuleList(matches[2])
	if existing, ok := s[target]; ok {
		if existing == nil || rules == nil {
			s[target] = nil
			return
		}
		rules = append(existing, rules...)
	}
	s[target] = rules
}

func parseRuleList(text string) []string {
	if i := strings.Index(text, "--"); i >= 0 {
		text = text[:i]
	}
	var rules []string
	for _, r := range strings.Split(text, ",") {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			rules = append(rules, r)
		}
	}
	return rules
}

// suppressed reports whether d is silenced by a directive.
func (s suppressions) suppressed(d Diagnostic) bool {
	rules, ok := s[d.Span.StartLine]
	if !ok {
		return false
	}
	return rules == nil || slices.Contains(rules, d.Rule)
}

// filter drops suppressed diagnostics in place.
func (s suppressions) filter(diags []Diagnostic) []Diagnostic {
	if len(s) == 0 {
		return diags
	}
	return slices.DeleteFunc(diags, s.suppressed)
}

// Suppress drops the diagnostics in diags that a directive comment in f
// silences. It applies to diagnostics from any rule, including ones not
// produced by Check.
func Suppress(ctx context.Context, f *syntax.File, diags []Diagnostic) ([]Diagnostic, error) {
	if len(diags) == 0 {
		return diags, nil
	}
	s := make(suppressions)
	var v syntax.Visitor
	v.On(func(n *sitter.Node) {
		s.add(f.Text(n), syntax.SpanOf(n).StartLine)
	}, syntax.KindComment)
	if err := syntax.Walk(ctx, f.Root(), v); err != nil {
		return nil, err
	}
	return s.filter(diags), nil
}
