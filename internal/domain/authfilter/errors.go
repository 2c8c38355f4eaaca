package authfilter

import "errors"

var (
	ErrNilVerifier          = errors.New("token verifier is required")
	ErrNilRevocationChecker = errors.New("revocation checker is required")
	ErrCollaboratorPanic    = errors.New("collaborator panicked")
)
