package auth

// User is the acting principal of a request. A nil *User means the request is
// unauthenticated; Super marks unrestricted principals that bypass row-level
// sharing checks.
type User struct {
	UID       string
	Super     bool
	GroupUIDs []string
}

// CanBypassSharing returns true when no sharing predicate applies for u.
func (u *User) CanBypassSharing() bool {
	return u == nil || u.Super
}
