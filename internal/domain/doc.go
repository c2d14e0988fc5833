// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (job.go, user.go, query.go, errors.go) hold the shared types
// and the repository contracts the record store adapter implements.
// No implementation code beyond value-type helpers.
package domain
