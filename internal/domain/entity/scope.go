package entity

import "fmt"

// Scope is the tenant/branch pair a request or a run executes under. It is
// always passed explicitly; background workers have no request to read it from.
type Scope struct {
	TenantID int64 `json:"tenant_id"`
	BranchID int64 `json:"branch_id"`
}

func (s Scope) Validate() error {
	if s.TenantID <= 0 || s.BranchID <= 0 {
		return fmt.Errorf("%w: tenant=%d branch=%d", ErrInvalidScope, s.TenantID, s.BranchID)
	}
	return nil
}
