package domain

// PolicyInput is what the issuance policy engine sees: who is asking,
// what plan they committed to, and which actions they want granted.
type PolicyInput struct {
	Subject          Subject  `json:"subject"`
	Plan             Plan     `json:"plan"`
	RequestedActions []string `json:"requested_actions"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow          bool         `json:"allow"`
	AllowedActions []string     `json:"allowed_actions,omitempty"`
	Deny           []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
