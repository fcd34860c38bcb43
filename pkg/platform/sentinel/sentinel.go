package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and registrar clients
// return these (optionally wrapped) so services can translate them into
// domain errors with the right code.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness violated (e.g. duplicate (org, domain) row)
// - ErrNoCredentials: organization has no credential set for a registrar
// - ErrUnavailable: provider assumed down, call was short-circuited
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrNoCredentials = errors.New("no credentials")
	ErrUnavailable   = errors.New("unavailable")
)
