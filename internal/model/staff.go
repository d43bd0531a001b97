package model

// Staff roles carried in access tokens.
const (
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// Staff is a department employee who can triage and complete orders.
// PasswordHash holds a bcrypt digest; the plain password never leaves the
// login handler.
type Staff struct {
	Identity     `yaml:",inline"`
	Username     string `json:"username" yaml:"username"`
	Name         string `json:"name" yaml:"name"`
	Role         string `json:"role" yaml:"role"`
	Department   string `json:"department,omitempty" yaml:"department,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty" yaml:"passwordHash,omitempty"`
}
