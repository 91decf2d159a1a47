package eid

import "errors"

// ErrMalformed is wrapped by every parse failure so callers can test for it
// with errors.Is, matching spec §7's InvalidInput error kind.
var ErrMalformed = errors.New("malformed endpoint identifier")
