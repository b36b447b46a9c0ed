package domain

// Canonical role names carried in the JWT and stored on the user record.
const (
	RoleFreelancer = "freelancer"
	RoleClient     = "client"
	RoleAdmin      = "admin"
)

// ValidRole reports whether r is one of the canonical roles.
func ValidRole(r string) bool {
	switch r {
	case RoleFreelancer, RoleClient, RoleAdmin:
		return true
	}
	return false
}
