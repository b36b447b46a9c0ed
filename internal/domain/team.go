package domain

import "time"

const (
	TeamRoleLeader = "leader"
	TeamRoleMember = "member"
)

type Team struct {
	TeamID      string                `json:"id" dynamodbav:"team_id"`
	Name        string                `json:"name" dynamodbav:"name"`
	Description string                `json:"description" dynamodbav:"description"`
	LeaderID    string                `json:"leader_id" dynamodbav:"leader_id"`
	Members     map[string]TeamMember `json:"members" dynamodbav:"members"`
	CreatedAt   time.Time             `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time             `json:"updated" dynamodbav:"updated_at"`
}

type TeamMember struct {
	Role     string    `json:"role" dynamodbav:"role"`
	JoinedAt time.Time `json:"joined_at" dynamodbav:"joined_at"`
}

// IsMember reports whether userID currently belongs to the team.
func (t *Team) IsMember(userID string) bool {
	_, ok := t.Members[userID]
	return ok
}

// MemberIDs returns the ids of all current members.
func (t *Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for id := range t.Members {
		ids = append(ids, id)
	}
	return ids
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
