// Package policy holds the authorization rules for expense claims and company
// membership. Every function is pure: callers load the identities and claim
// summaries, policy only decides.
package policy

import (
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	coreExpense "github.com/frahmantamala/expense-claims/internal/core/expense"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

// Scope is the caller's row in the decision table.
type Scope int

const (
	// ScopeSolo is an individual account with no company.
	ScopeSolo Scope = iota
	// ScopeIsolated is a company account that has not been attached to a company yet.
	// It behaves like solo for visibility but never auto-approves.
	ScopeIsolated
	ScopeEmployee
	ScopeManager
)

func (s Scope) String() string {
	switch s {
	case ScopeSolo:
		return "solo"
	case ScopeIsolated:
		return "isolated"
	case ScopeEmployee:
		return "employee"
	case ScopeManager:
		return "manager"
	}
	return "unknown"
}

type scopeKey struct {
	account    coreUser.AccountType
	manager    bool
	hasCompany bool
}

var scopeTable = map[scopeKey]Scope{
	{coreUser.AccountSolo, false, false}:    ScopeSolo,
	{coreUser.AccountSolo, false, true}:     ScopeSolo,
	{coreUser.AccountSolo, true, false}:     ScopeSolo,
	{coreUser.AccountSolo, true, true}:      ScopeSolo,
	{coreUser.AccountCompany, false, false}: ScopeIsolated,
	{coreUser.AccountCompany, true, false}:  ScopeIsolated,
	{coreUser.AccountCompany, false, true}:  ScopeEmployee,
	{coreUser.AccountCompany, true, true}:   ScopeManager,
}

// ScopeOf resolves (accountType, role, hasCompanyId) to a Scope. Unknown
// account types fall back to the most restrictive owner-only scope.
func ScopeOf(caller coreUser.Identity) Scope {
	scope, ok := scopeTable[scopeKey{caller.AccountType, caller.Role.IsManager(), caller.HasCompany()}]
	if !ok {
		return ScopeIsolated
	}
	return scope
}

// Claim is the subset of an expense the rules look at.
type Claim struct {
	OwnerID   int64
	CompanyID *int64
	Status    coreExpense.Status
}

// Decision is the outcome of a rule: allowed, or denied with a typed error.
type Decision struct {
	err *internal.AppError
}

func allow() Decision { return Decision{} }

func deny(err *internal.AppError) Decision { return Decision{err: err} }

func (d Decision) Allowed() bool { return d.err == nil }

func (d Decision) Reason() string {
	if d.err == nil {
		return ""
	}
	return d.err.Message
}

// Err returns nil when allowed.
func (d Decision) Err() error {
	if d.err == nil {
		return nil
	}
	return d.err
}

var (
	errOwnerOnly       = internal.NewForbiddenError("You can only access your own expenses", internal.ErrCodeAccessDenied)
	errOtherCompany    = internal.NewForbiddenError("Expense belongs to another company", internal.ErrCodeAccessDenied)
	errNoClaimCompany  = internal.NewForbiddenError("Expense is not attached to a company", internal.ErrCodeAccessDenied)
	errSelfOnlyCreate  = internal.NewForbiddenError("You can only create expenses for yourself", internal.ErrCodeAccessDenied)
	errCreateForSelf   = internal.NewForbiddenError("Managers create expenses on behalf of an employee, not themselves", internal.ErrCodeAccessDenied)
	errTargetInactive  = internal.NewForbiddenError("Target employee is inactive", internal.ErrCodeAccessDenied)
	errTargetNotEmpl   = internal.NewForbiddenError("Target user is not an employee", internal.ErrCodeAccessDenied)
	errExportEmployee  = internal.NewForbiddenError("Employees cannot export expenses", internal.ErrCodeAccessDenied)
	errExportNoCompany = internal.NewForbiddenError("Export requires a company or a solo account", internal.ErrCodeAccessDenied)
)

// CreatePlan is what a permitted create will persist.
type CreatePlan struct {
	OwnerID     int64
	CompanyID   *int64
	Status      coreExpense.Status
	ValidatedBy *int64
}

// AutoApproved reports whether the claim skips the pending state.
func (p CreatePlan) AutoApproved() bool {
	return p.Status == coreExpense.StatusApproved
}

// ValidatedAt returns now for auto-approved plans and nil otherwise.
func (p CreatePlan) ValidatedAt(now time.Time) *time.Time {
	if !p.AutoApproved() {
		return nil
	}
	return &now
}

// PlanCreate decides whether caller may create a claim owned by target
// (nil target means "for myself") and with which initial state.
func PlanCreate(caller coreUser.Identity, target *coreUser.Identity) (CreatePlan, Decision) {
	forSelf := target == nil || target.UserID == caller.UserID
	self := caller.UserID

	switch ScopeOf(caller) {
	case ScopeSolo:
		if !forSelf {
			return CreatePlan{}, deny(errSelfOnlyCreate)
		}
		return CreatePlan{OwnerID: self, Status: coreExpense.StatusApproved, ValidatedBy: &self}, allow()

	case ScopeIsolated:
		if !forSelf {
			return CreatePlan{}, deny(errSelfOnlyCreate)
		}
		return CreatePlan{OwnerID: self, Status: coreExpense.StatusPending}, allow()

	case ScopeEmployee:
		if !forSelf {
			return CreatePlan{}, deny(errSelfOnlyCreate)
		}
		return CreatePlan{OwnerID: self, CompanyID: copyID(caller.CompanyID), Status: coreExpense.StatusPending}, allow()

	case ScopeManager:
		if target == nil {
			return CreatePlan{}, deny(internal.ErrEmployeeRequired)
		}
		if target.UserID == caller.UserID {
			return CreatePlan{}, deny(errCreateForSelf)
		}
		if target.AccountType != coreUser.AccountCompany || !target.InCompany(caller.CompanyID) {
			return CreatePlan{}, deny(errOtherCompany)
		}
		if !target.IsActive {
			return CreatePlan{}, deny(errTargetInactive)
		}
		if target.Role != coreUser.RoleEmployee {
			return CreatePlan{}, deny(errTargetNotEmpl)
		}
		return CreatePlan{
			OwnerID:     target.UserID,
			CompanyID:   copyID(caller.CompanyID),
			Status:      coreExpense.StatusApproved,
			ValidatedBy: &self,
		}, allow()
	}

	return CreatePlan{}, deny(internal.ErrAccessDenied)
}

// CanView covers get, list membership and the audit timeline.
func CanView(caller coreUser.Identity, claim Claim) Decision {
	switch ScopeOf(caller) {
	case ScopeSolo, ScopeIsolated:
		if claim.OwnerID != caller.UserID {
			return deny(errOwnerOnly)
		}
		return allow()
	case ScopeEmployee:
		if !caller.InCompany(claim.CompanyID) {
			return deny(errOtherCompany)
		}
		if claim.OwnerID != caller.UserID {
			return deny(errOwnerOnly)
		}
		return allow()
	case ScopeManager:
		if !caller.InCompany(claim.CompanyID) {
			return deny(errOtherCompany)
		}
		return allow()
	}
	return deny(internal.ErrAccessDenied)
}

// CanTransition covers approve and reject. A claim that is no longer pending
// is a Conflict, and only once every authorization check has passed.
func CanTransition(caller coreUser.Identity, claim Claim) Decision {
	if ScopeOf(caller) != ScopeManager {
		return deny(internal.ErrManagerRequired)
	}
	if claim.CompanyID == nil {
		return deny(errNoClaimCompany)
	}
	if !caller.InCompany(claim.CompanyID) {
		return deny(errOtherCompany)
	}
	if claim.OwnerID == caller.UserID {
		return deny(internal.ErrSelfApproval)
	}
	if claim.Status != coreExpense.StatusPending {
		return deny(internal.ErrExpenseAlreadyProcessed)
	}
	return allow()
}

// CanDelete checks the pending precondition before any ownership rule, so a
// processed claim always reports Conflict whoever asks.
func CanDelete(caller coreUser.Identity, claim Claim) Decision {
	if claim.Status != coreExpense.StatusPending {
		return deny(internal.ErrExpenseNotPending)
	}

	scope := ScopeOf(caller)
	if scope == ScopeSolo || scope == ScopeIsolated || claim.CompanyID == nil {
		if claim.OwnerID != caller.UserID {
			return deny(errOwnerOnly)
		}
		return allow()
	}

	if !caller.InCompany(claim.CompanyID) {
		return deny(errOtherCompany)
	}
	if scope == ScopeManager {
		return allow()
	}
	if claim.OwnerID != caller.UserID {
		return deny(errOwnerOnly)
	}
	return allow()
}

// ListFilter restricts a claim query. Nil fields are unconstrained.
type ListFilter struct {
	OwnerID   *int64
	CompanyID *int64
	Status    coreExpense.Status
}

// ListScope returns the claims caller may list.
func ListScope(caller coreUser.Identity) ListFilter {
	self := caller.UserID
	switch ScopeOf(caller) {
	case ScopeEmployee:
		return ListFilter{OwnerID: &self, CompanyID: copyID(caller.CompanyID)}
	case ScopeManager:
		return ListFilter{CompanyID: copyID(caller.CompanyID)}
	default:
		return ListFilter{OwnerID: &self}
	}
}

// ExportScope returns the claims caller may export by email.
func ExportScope(caller coreUser.Identity) (ListFilter, Decision) {
	self := caller.UserID
	switch ScopeOf(caller) {
	case ScopeSolo:
		return ListFilter{OwnerID: &self}, allow()
	case ScopeManager:
		return ListFilter{CompanyID: copyID(caller.CompanyID), Status: coreExpense.StatusApproved}, allow()
	case ScopeEmployee:
		return ListFilter{}, deny(errExportEmployee)
	default:
		return ListFilter{}, deny(errExportNoCompany)
	}
}

// CanManageMember covers activating or deactivating a company member.
func CanManageMember(caller coreUser.Identity, target coreUser.Identity) Decision {
	if ScopeOf(caller) != ScopeManager {
		return deny(internal.ErrManagerRequired)
	}
	if !target.InCompany(caller.CompanyID) {
		return deny(internal.ErrAccessDenied)
	}
	if target.UserID == caller.UserID || target.Role != coreUser.RoleEmployee {
		return deny(errTargetNotEmpl)
	}
	return allow()
}

// CanManageCompany covers listing members and regenerating the invite code.
func CanManageCompany(caller coreUser.Identity) Decision {
	if !caller.HasCompany() || caller.AccountType != coreUser.AccountCompany {
		return deny(internal.ErrNoCompany)
	}
	if ScopeOf(caller) != ScopeManager {
		return deny(internal.ErrManagerRequired)
	}
	return allow()
}

func CanSeeInviteCode(caller coreUser.Identity) bool {
	return ScopeOf(caller) == ScopeManager
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
