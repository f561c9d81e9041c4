package expense

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatusFilter accepts an empty filter (no filtering) or a known status.
func ParseStatusFilter(raw string) (Status, bool) {
	if raw == "" {
		return "", true
	}
	s := Status(raw)
	return s, s.Valid()
}
