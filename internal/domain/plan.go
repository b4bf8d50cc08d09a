package domain

// Plan is the ordered list of actions a subject intends to execute,
// captured before any execution occurs. Step order is part of the
// commitment: reordering steps changes the Merkle root.
type Plan struct {
	Goal  string `json:"goal"`
	Steps []Step `json:"steps"`
}

// Step is one action in a plan. MCP names the backend that will serve
// the action; it is optional and omitted from canonical bytes when empty.
type Step struct {
	Action string         `json:"action"`
	MCP    string         `json:"mcp,omitempty"`
	Params map[string]any `json:"params"`
}

// Leaf is the canonical form of exactly one step. Hash is always the
// SHA-256 of CanonicalBytes.
type Leaf struct {
	Path           string
	CanonicalBytes []byte
	Hash           []byte
}
