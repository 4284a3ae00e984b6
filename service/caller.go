package service

// Caller identifies who is invoking a gated operation. A nil Caller is anonymous.
type Caller struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// Authenticated reports whether c carries a real identity.
func (c *Caller) Authenticated() bool {
	return c != nil && c.UserID != 0
}

// RequireAuthenticated is the guard at the top of every restricted operation.
func RequireAuthenticated(c *Caller) error {
	if !c.Authenticated() {
		return ErrAuthenticationRequired
	}
	return nil
}

// RequireStaff additionally demands the staff flag.
func RequireStaff(c *Caller) error {
	if err := RequireAuthenticated(c); err != nil {
		return err
	}
	if !c.IsStaff {
		return ErrPermissionDenied
	}
	return nil
}
