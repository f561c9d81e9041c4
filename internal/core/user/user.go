package user

type AccountType string

const (
	AccountSolo    AccountType = "solo"
	AccountCompany AccountType = "company"
)

func (a AccountType) Valid() bool {
	return a == AccountSolo || a == AccountCompany
}

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// IsManager reports whether the role may approve, reject and manage members.
func (r Role) IsManager() bool {
	return r == RoleManager || r == RoleAdmin
}

// Identity is the live membership record of a user, as read from storage.
// It is used both for the authenticated caller and for target users.
type Identity struct {
	UserID      int64
	Role        Role
	AccountType AccountType
	CompanyID   *int64
	IsActive    bool
}

func (i Identity) HasCompany() bool {
	return i.CompanyID != nil
}

// InCompany reports whether i belongs to companyID.
func (i Identity) InCompany(companyID *int64) bool {
	return i.CompanyID != nil && companyID != nil && *i.CompanyID == *companyID
}
