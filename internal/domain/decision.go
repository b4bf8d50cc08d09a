package domain

// DenyReason is the closed set of reasons an invocation can be refused.
// Gateways branch on these codes; they never see a bare boolean.
type DenyReason string

const (
	DenyInvalidToken        DenyReason = "INVALID_TOKEN"
	DenyTokenExpired        DenyReason = "TOKEN_EXPIRED"
	DenyActionNotAuthorized DenyReason = "ACTION_NOT_AUTHORIZED"
	DenyNotALeaf            DenyReason = "NOT_A_LEAF"
	DenyProofMismatch       DenyReason = "PROOF_MISMATCH"
)

// Decision is the outcome of the authorization procedure for one
// invocation attempt. Gate failures are values, not errors.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
