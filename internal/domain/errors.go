package domain

import "errors"

var (
	ErrCanonicalize          = errors.New("plan not canonicalizable")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrDelegationScope       = errors.New("delegation scope violation")
	ErrDelegationDepth       = errors.New("delegation depth exceeded")
	ErrCacheIssuance         = errors.New("cache issuance failed")
	ErrPolicyRejected        = errors.New("policy rejected issuance")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
)
