package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/testutil/memstore"
	"github.com/stretchr/testify/require"
)

// SeedUser stores an enabled user with the given id and role.
func SeedUser(t *testing.T, s *memstore.Store, userID, role string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		UserID:    userID,
		Name:      userID,
		Email:     userID + "@example.com",
		Role:      role,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Users.Put(context.Background(), u))
	return u
}

// SeedTeam stores a team led by leaderID with the given extra members.
func SeedTeam(t *testing.T, s *memstore.Store, teamID, leaderID string, members ...string) *domain.Team {
	t.Helper()
	now := time.Now().UTC()
	team := &domain.Team{
		TeamID:    teamID,
		Name:      teamID,
		LeaderID:  leaderID,
		Members:   map[string]domain.TeamMember{leaderID: {Role: domain.TeamRoleLeader, JoinedAt: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range members {
		team.Members[m] = domain.TeamMember{Role: domain.TeamRoleMember, JoinedAt: now}
	}
	require.NoError(t, s.Teams.Create(context.Background(), team))
	return team
}

// SeedProject stores an open project owned by clientID.
func SeedProject(t *testing.T, s *memstore.Store, projectID, clientID string) *domain.Project {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Project{
		ProjectID: projectID,
		ClientID:  clientID,
		Title:     projectID,
		Status:    domain.ProjectOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Projects.Create(context.Background(), p))
	return p
}
