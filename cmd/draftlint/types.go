package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIRule is a JSON-friendly rule listing entry.
type CLIRule struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Type        string            `json:"type,omitempty"`
	Description string            `json:"description,omitempty"`
	Messages    map[string]string `json:"messages,omitempty"`
	Path        string            `json:"path,omitempty"`
}
