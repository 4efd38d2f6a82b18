package models

type UserRole string

const (
	RoleParticipant UserRole = "participant"
	RoleTrainer     UserRole = "trainer"
	RoleAdmin       UserRole = "admin"
)

// User is a read-only projection of the identity provider's account
type User struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url,omitempty"`

	EmailVerified bool `json:"email_verified"`
}

// Actor is the identity on whose behalf an engine operation runs
type Actor struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleTrainer
}
