// Package testutil provides fixed identifiers and assertion helpers for tests.
package testutil

// Fixed identifiers for deterministic tests.
const (
	TestApplicantID   = "919876543210"
	TestGSTIN         = "27AAPFU0939F1ZV"
	TestApplicationID = "00000000-0000-0000-0000-00000000a001"
	TestOfferID       = "00000000-0000-0000-0000-00000000b001"
	TestLoanID        = "00000000-0000-0000-0000-00000000c001"
)
