package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/freelance-hub/internal/application/fanout"
	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/id"
	"github.com/freelance-hub/internal/pkg/page"
	"github.com/freelance-hub/internal/realtime"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, actorID string, req domain.CreateTeamRequest) (*domain.Team, error)
	Mine(ctx context.Context, userID string, pg page.Request) ([]domain.Team, page.Result, error)
	Get(ctx context.Context, userID, teamID string) (*domain.Team, error)
	AddMember(ctx context.Context, actorID, teamID string, req domain.AddMemberRequest) (*domain.Team, error)
	RemoveMember(ctx context.Context, actorID, teamID, userID string) (*domain.Team, error)
	Leave(ctx context.Context, userID, teamID string) error
}

type teamStore interface {
	Create(ctx context.Context, t *domain.Team) error
	Get(ctx context.Context, teamID string) (*domain.Team, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Team, error)
	AddMember(ctx context.Context, teamID, userID string, m domain.TeamMember, events ...*domain.OutboxEvent) error
	RemoveMember(ctx context.Context, teamID, userID string, events ...*domain.OutboxEvent) error
}

type projectStore interface {
	ListByTeam(ctx context.Context, teamID string) ([]domain.Project, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type emitter interface {
	Emit(ctx context.Context, room, event string, data any)
	JoinRoom(ctx context.Context, userID, room string)
	LeaveRoom(ctx context.Context, userID, room string)
}

type service struct {
	repo     teamStore
	projects projectStore
	users    userStore
	emitter  emitter
}

type ServiceDeps struct {
	TeamRepo    teamStore
	ProjectRepo projectStore
	UserRepo    userStore
	Emitter     emitter
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.TeamRepo, projects: deps.ProjectRepo, users: deps.UserRepo, emitter: deps.Emitter}
}

func (s *service) Create(ctx context.Context, actorID string, req domain.CreateTeamRequest) (*domain.Team, error) {
	now := time.Now().UTC()
	t := &domain.Team{
		TeamID:      id.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		LeaderID:    actorID,
		Members: map[string]domain.TeamMember{
			actorID: {Role: domain.TeamRoleLeader, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.emitter.JoinRoom(ctx, actorID, realtime.TeamRoom(t.TeamID))
	return t, nil
}

func (s *service) Mine(ctx context.Context, userID string, pg page.Request) ([]domain.Team, page.Result, error) {
	teams, err := s.repo.ListByMember(ctx, userID)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(teams, pg)
	return out, res, nil
}

func (s *service) Get(ctx context.Context, userID, teamID string) (*domain.Team, error) {
	t, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.IsMember(userID) {
		return nil, fmt.Errorf("not a team member: %w", domain.ErrForbidden)
	}
	return t, nil
}

func (s *service) leaderTeam(ctx context.Context, actorID, teamID string) (*domain.Team, error) {
	t, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if t.LeaderID != actorID {
		return nil, fmt.Errorf("only the team leader can manage members: %w", domain.ErrForbidden)
	}
	return t, nil
}

func (s *service) AddMember(ctx context.Context, actorID, teamID string, req domain.AddMemberRequest) (*domain.Team, error) {
	t, err := s.leaderTeam(ctx, actorID, teamID)
	if err != nil {
		return nil, err
	}
	if t.IsMember(req.UserID) {
		return nil, fmt.Errorf("user is already a member: %w", domain.ErrConflict)
	}
	u, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("user is disabled: %w", domain.ErrBadRequest)
	}
	ev := fanout.NewEvent(actorID, domain.NotificationTemplate{
		Type:    domain.NotifyTeam,
		Title:   "Added to team",
		Content: fmt.Sprintf("You were added to the team %q", t.Name),
		Link:    "/teams/" + t.TeamID,
		Related: domain.Related{TeamID: t.TeamID, UserID: actorID},
	}, u.UserID)
	m := domain.TeamMember{Role: domain.TeamRoleMember, JoinedAt: time.Now().UTC()}
	if err := s.repo.AddMember(ctx, teamID, u.UserID, m, ev); err != nil {
		return nil, err
	}
	room := realtime.TeamRoom(teamID)
	s.emitter.JoinRoom(ctx, u.UserID, room)
	for _, p := range s.teamProjects(ctx, teamID) {
		s.emitter.JoinRoom(ctx, u.UserID, realtime.ProjectRoom(p.ProjectID))
	}
	s.emitter.Emit(ctx, room, realtime.EventTeamUpdated, map[string]string{"team_id": teamID, "joined": u.UserID})
	return s.repo.Get(ctx, teamID)
}

func (s *service) RemoveMember(ctx context.Context, actorID, teamID, userID string) (*domain.Team, error) {
	t, err := s.leaderTeam(ctx, actorID, teamID)
	if err != nil {
		return nil, err
	}
	if userID == t.LeaderID {
		return nil, fmt.Errorf("the leader cannot be removed: %w", domain.ErrBadRequest)
	}
	if !t.IsMember(userID) {
		return nil, fmt.Errorf("user is not a member: %w", domain.ErrNotFound)
	}
	ev := fanout.NewEvent(actorID, domain.NotificationTemplate{
		Type:    domain.NotifyTeam,
		Title:   "Removed from team",
		Content: fmt.Sprintf("You were removed from the team %q", t.Name),
		Related: domain.Related{TeamID: t.TeamID, UserID: actorID},
	}, userID)
	if err := s.repo.RemoveMember(ctx, teamID, userID, ev); err != nil {
		return nil, err
	}
	s.departed(ctx, teamID, userID)
	return s.repo.Get(ctx, teamID)
}

func (s *service) Leave(ctx context.Context, userID, teamID string) error {
	t, err := s.Get(ctx, userID, teamID)
	if err != nil {
		return err
	}
	if t.LeaderID == userID {
		return fmt.Errorf("the leader cannot leave the team: %w", domain.ErrBadRequest)
	}
	ev := fanout.NewEvent(userID, domain.NotificationTemplate{
		Type:    domain.NotifyTeam,
		Title:   "Member left",
		Content: fmt.Sprintf("A member left the team %q", t.Name),
		Link:    "/teams/" + t.TeamID,
		Related: domain.Related{TeamID: t.TeamID, UserID: userID},
	}, t.LeaderID)
	if err := s.repo.RemoveMember(ctx, teamID, userID, ev); err != nil {
		return err
	}
	s.departed(ctx, teamID, userID)
	return nil
}

// teamProjects lists the projects reached through teamID. Room bookkeeping is
// best effort, so a failed lookup is logged and yields nothing.
func (s *service) teamProjects(ctx context.Context, teamID string) []domain.Project {
	projects, err := s.projects.ListByTeam(ctx, teamID)
	if err != nil {
		zap.L().Warn("list team projects", zap.String("team_id", teamID), zap.Error(err))
		return nil
	}
	return projects
}

// departed drops userID's sockets from the team room and from every project
// room they only reached through the team.
func (s *service) departed(ctx context.Context, teamID, userID string) {
	room := realtime.TeamRoom(teamID)
	s.emitter.LeaveRoom(ctx, userID, room)
	for _, p := range s.teamProjects(ctx, teamID) {
		if p.ClientID != userID && !p.IsAssigned(userID) {
			s.emitter.LeaveRoom(ctx, userID, realtime.ProjectRoom(p.ProjectID))
		}
	}
	s.emitter.Emit(ctx, room, realtime.EventTeamUpdated, map[string]string{"team_id": teamID, "left": userID})
}
