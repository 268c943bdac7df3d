package store

import "time"

type File struct {
	ID         int64
	Path       string
	Language   string
	Hash       string
	LineCount  int
	LastLinted time.Time
}

type Diagnostic struct {
	ID        int64
	FileID    int64
	Rule      string
	Kind      string
	Message   string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Aggregates

// RuleCount is the number of diagnostics reported by one rule.
type RuleCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// FileCount is the number of diagnostics reported in one file.
type FileCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}
