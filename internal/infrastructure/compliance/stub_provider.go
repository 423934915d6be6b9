package compliance

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// Compile-time interface check.
var _ port.ComplianceProvider = (*StubProvider)(nil)

// StubProvider is a development/test adapter that returns a deterministic
// filing regularity derived from the GSTIN. It implements
// port.ComplianceProvider.
type StubProvider struct{}

// NewStubProvider creates a new stub adapter.
func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

// FilingRegularity returns a deterministic fraction in [0.5, 1.0] based on a
// hash of the GSTIN. The floor keeps stub borrowers out of the worst risk
// band so development flows reach approval.
func (p *StubProvider) FilingRegularity(_ context.Context, gstin valueobject.GSTIN) (float64, error) {
	h := sha256.Sum256([]byte(gstin.String()))
	num := binary.BigEndian.Uint32(h[:4])
	return 0.5 + float64(num%51)/100, nil
}
