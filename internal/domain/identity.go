package domain

// Role identifies which side of the portal an identity belongs to.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleLawyer Role = "LAWYER"
)

// Identity is the minimal view of a portal account referenced by
// tickets, cases and messages.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
