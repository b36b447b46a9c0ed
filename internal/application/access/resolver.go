// Package access answers who may see a project or team and which socket
// rooms a user belongs to.
package access

import (
	"context"
	"fmt"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/realtime"
)

type projectStore interface {
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	ListForUser(ctx context.Context, userID string, teamIDs []string) ([]domain.Project, error)
}

type teamStore interface {
	Get(ctx context.Context, teamID string) (*domain.Team, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Team, error)
}

type Resolver struct {
	projects projectStore
	teams    teamStore
}

func NewResolver(projects projectStore, teams teamStore) *Resolver {
	return &Resolver{projects: projects, teams: teams}
}

// Participants returns the client, the assigned freelancers and, when a team
// is assigned, its members. The result holds no duplicates.
func (r *Resolver) Participants(ctx context.Context, p *domain.Project) ([]string, error) {
	seen := map[string]struct{}{p.ClientID: {}}
	ids := []string{p.ClientID}
	add := func(id string) {
		if _, ok := seen[id]; !ok && id != "" {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, f := range p.AssignedFreelancers {
		add(f)
	}
	if p.TeamID != "" {
		t, err := r.teams.Get(ctx, p.TeamID)
		if err != nil {
			return nil, fmt.Errorf("load project team: %w", err)
		}
		for _, m := range t.MemberIDs() {
			add(m)
		}
	}
	return ids, nil
}

// IsParticipant reports whether userID takes part in p.
func (r *Resolver) IsParticipant(ctx context.Context, userID string, p *domain.Project) (bool, error) {
	if p.ClientID == userID || p.IsAssigned(userID) {
		return true, nil
	}
	if p.TeamID == "" {
		return false, nil
	}
	t, err := r.teams.Get(ctx, p.TeamID)
	if err != nil {
		return false, err
	}
	return t.IsMember(userID), nil
}

// Project loads a project userID participates in.
func (r *Resolver) Project(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	p, err := r.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ok, err := r.IsParticipant(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
	}
	return p, nil
}

// Team loads a team userID is a member of.
func (r *Resolver) Team(ctx context.Context, userID, teamID string) (*domain.Team, error) {
	t, err := r.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.IsMember(userID) {
		return nil, fmt.Errorf("not a team member: %w", domain.ErrForbidden)
	}
	return t, nil
}

// ProjectsFor lists every project userID participates in, directly or
// through a team.
func (r *Resolver) ProjectsFor(ctx context.Context, userID string) ([]domain.Project, error) {
	teams, err := r.teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	teamIDs := make([]string, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.TeamID)
	}
	return r.projects.ListForUser(ctx, userID, teamIDs)
}

// Rooms lists the socket rooms a fresh connection of userID joins.
func (r *Resolver) Rooms(ctx context.Context, userID string) ([]string, error) {
	teams, err := r.teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	rooms := []string{realtime.UserRoom(userID)}
	teamIDs := make([]string, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.TeamID)
		rooms = append(rooms, realtime.TeamRoom(t.TeamID))
	}
	projects, err := r.projects.ListForUser(ctx, userID, teamIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		rooms = append(rooms, realtime.ProjectRoom(p.ProjectID))
	}
	return rooms, nil
}
