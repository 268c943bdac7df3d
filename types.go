package draftlint

import (
	"github.com/jward/draftlint/internal/rule"
	"github.com/jward/draftlint/internal/store"
)

// Public type aliases for internal types used in the Engine and
// QueryBuilder APIs.

type Store = store.Store
type File = store.File
type RuleCount = store.RuleCount
type FileCount = store.FileCount
type RuleOptions = rule.Options
type RuleMeta = rule.Meta

// DefaultRuleOptions returns the built-in rule's options for immer.
func DefaultRuleOptions() RuleOptions { return rule.DefaultOptions() }

// BuiltinRules returns the metadata of the rules compiled into draftlint.
func BuiltinRules() []RuleMeta { return []RuleMeta{rule.Metadata} }
