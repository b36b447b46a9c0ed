package project

import (
	"context"
	"errors"
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

// saveAttempts bounds the reload-and-retry loop on version conflicts.
const saveAttempts = 3

type Service interface {
	Create(ctx context.Context, actorID, role string, req domain.CreateProjectRequest) (*domain.Project, error)
	List(ctx context.Context, f domain.ProjectFilter, pg page.Request) ([]domain.Project, page.Result, error)
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	Mine(ctx context.Context, userID string, pg page.Request) ([]domain.Project, page.Result, error)
	Update(ctx context.Context, actorID, projectID string, req domain.UpdateProjectRequest) (*domain.Project, error)
	Delete(ctx context.Context, actorID, role, projectID string) error
	SubmitProposal(ctx context.Context, freelancerID, role, projectID string, req domain.SubmitProposalRequest) (*domain.Proposal, error)
	AcceptProposal(ctx context.Context, actorID, projectID, proposalID string) (*domain.Project, error)
	RejectProposal(ctx context.Context, actorID, projectID, proposalID string) (*domain.Project, error)
	AssignTeam(ctx context.Context, actorID, projectID string, req domain.AssignTeamRequest) (*domain.Project, error)
	UpdateStatus(ctx context.Context, actorID, projectID string, req domain.UpdateProjectStatusRequest) (*domain.Project, error)
	BroadcastUpdate(ctx context.Context, actorID, projectID string, update any) error
}

type projectStore interface {
	Create(ctx context.Context, p *domain.Project, events ...*domain.OutboxEvent) error
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	List(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, error)
	Save(ctx context.Context, p *domain.Project, expectedVersion int, events ...*domain.OutboxEvent) error
	Delete(ctx context.Context, projectID string, version int) error
}

type taskStore interface {
	DeleteByProject(ctx context.Context, projectID string) error
}

type teamStore interface {
	Get(ctx context.Context, teamID string) (*domain.Team, error)
}

type accessResolver interface {
	Participants(ctx context.Context, p *domain.Project) ([]string, error)
	Project(ctx context.Context, userID, projectID string) (*domain.Project, error)
	ProjectsFor(ctx context.Context, userID string) ([]domain.Project, error)
}

type emitter interface {
	Emit(ctx context.Context, room, event string, data any)
	JoinRoom(ctx context.Context, userID, room string)
	LeaveRoom(ctx context.Context, userID, room string)
}

type service struct {
	repo    projectStore
	tasks   taskStore
	teams   teamStore
	access  accessResolver
	emitter emitter
}

type ServiceDeps struct {
	ProjectRepo projectStore
	TaskRepo    taskStore
	TeamRepo    teamStore
	Access      accessResolver
	Emitter     emitter
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:    deps.ProjectRepo,
		tasks:   deps.TaskRepo,
		teams:   deps.TeamRepo,
		access:  deps.Access,
		emitter: deps.Emitter,
	}
}

func link(projectID string) string { return "/projects/" + projectID }

func (s *service) Create(ctx context.Context, actorID, role string, req domain.CreateProjectRequest) (*domain.Project, error) {
	if role != domain.RoleClient && role != domain.RoleAdmin {
		return nil, fmt.Errorf("only clients can post projects: %w", domain.ErrForbidden)
	}
	now := time.Now().UTC()
	p := &domain.Project{
		ProjectID:           id.New(),
		ClientID:            actorID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		Skills:              req.Skills,
		Budget:              req.Budget,
		Deadline:            req.Deadline,
		Status:              domain.ProjectOpen,
		AssignedFreelancers: []string{},
		TaskIDs:             []string{},
		Proposals:           []domain.Proposal{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.emitter.JoinRoom(ctx, actorID, realtime.ProjectRoom(p.ProjectID))
	return p, nil
}

func (s *service) List(ctx context.Context, f domain.ProjectFilter, pg page.Request) ([]domain.Project, page.Result, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(items, pg)
	return out, res, nil
}

func (s *service) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.repo.Get(ctx, projectID)
}

func (s *service) Mine(ctx context.Context, userID string, pg page.Request) ([]domain.Project, page.Result, error) {
	items, err := s.access.ProjectsFor(ctx, userID)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(items, pg)
	return out, res, nil
}

// mutation applies a change to a freshly loaded project and returns the
// outbox events to commit with it.
type mutation func(p *domain.Project) ([]*domain.OutboxEvent, error)

// mutate loads the project, applies fn and saves it at the loaded version,
// reloading on a concurrent write.
func (s *service) mutate(ctx context.Context, projectID string, fn mutation) (*domain.Project, error) {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		var p *domain.Project
		p, err = s.repo.Get(ctx, projectID)
		if err != nil {
			return nil, err
		}
		version := p.Version
		var events []*domain.OutboxEvent
		if events, err = fn(p); err != nil {
			return nil, err
		}
		err = s.repo.Save(ctx, p, version, events...)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("project changed concurrently, retry: %w", err)
}

func requireOwner(p *domain.Project, actorID string) error {
	if p.ClientID != actorID {
		return fmt.Errorf("only the project owner can do this: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *service) Update(ctx context.Context, actorID, projectID string, req domain.UpdateProjectRequest) (*domain.Project, error) {
	return s.mutate(ctx, projectID, func(p *domain.Project) ([]*domain.OutboxEvent, error) {
		if err := requireOwner(p, actorID); err != nil {
			return nil, err
		}
		if p.Status != domain.ProjectOpen {
			return nil, fmt.Errorf("project can only be edited while open: %w", domain.ErrBadRequest)
		}
		if req.Title != nil {
			p.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Skills != nil {
			p.Skills = *req.Skills
		}
		if req.Budget != nil {
			p.Budget = *req.Budget
		}
		if req.Deadline != nil {
			p.Deadline = req.Deadline
		}
		return nil, nil
	})
}

func (s *service) Delete(ctx context.Context, actorID, role, projectID string) error {
	p, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.ClientID != actorID && role != domain.RoleAdmin {
		return fmt.Errorf("only the owner or an admin can delete a project: %w", domain.ErrForbidden)
	}
	if p.Status == domain.ProjectInProgress {
		return fmt.Errorf("project is in progress: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Delete(ctx, projectID, p.Version); err != nil {
		return err
	}
	return s.tasks.DeleteByProject(ctx, projectID)
}

func (s *service) SubmitProposal(ctx context.Context, freelancerID, role, projectID string, req domain.SubmitProposalRequest) (*domain.Proposal, error) {
	if role != domain.RoleFreelancer {
		return nil, fmt.Errorf("only freelancers can submit proposals: %w", domain.ErrForbidden)
	}
	prop := domain.Proposal{
		ProposalID:   id.New(),
		FreelancerID: freelancerID,
		CoverLetter:  req.CoverLetter,
		Bid:          req.Bid,
		Status:       domain.ProposalPending,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.mutate(ctx, projectID, func(p *domain.Project) ([]*domain.OutboxEvent, error) {
		if p.Status != domain.ProjectOpen {
			return nil, fmt.Errorf("project is not accepting proposals: %w", domain.ErrBadRequest)
		}
		if p.ClientID == freelancerID {
			return nil, fmt.Errorf("cannot bid on your own project: %w", domain.ErrBadRequest)
		}
		if p.HasProposalFrom(freelancerID) {
			return nil, fmt.Errorf("proposal already submitted: %w", domain.ErrConflict)
		}
		p.Proposals = append(p.Proposals, prop)
		ev := fanout.NewEvent(freelancerID, domain.NotificationTemplate{
			Type:    domain.NotifyProposal,
			Title:   "New proposal",
			Content: fmt.Sprintf("You received a new proposal for %q", p.Title),
			Link:    link(p.ProjectID),
			Related: domain.Related{ProjectID: p.ProjectID, UserID: freelancerID},
			Actions: []domain.NotificationAction{
				{Label: "Accept", Method: "POST", Endpoint: fmt.Sprintf("/api/projects/%s/proposals/%s/accept", p.ProjectID, prop.ProposalID)},
				{Label: "Reject", Method: "POST", Endpoint: fmt.Sprintf("/api/projects/%s/proposals/%s/reject", p.ProjectID, prop.ProposalID)},
			},
		}, p.ClientID)
		return []*domain.OutboxEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return &prop, nil
}

func (s *service) decide(ctx context.Context, actorID, projectID, proposalID string, accept bool) (*domain.Project, error) {
	var freelancerID string
	p, err := s.mutate(ctx, projectID, func(p *domain.Project) ([]*domain.OutboxEvent, error) {
		if err := requireOwner(p, actorID); err != nil {
			return nil, err
		}
		if p.Status != domain.ProjectOpen {
			return nil, fmt.Errorf("project is not open: %w", domain.ErrBadRequest)
		}
		prop, ok := p.Proposal(proposalID)
		if !ok {
			return nil, fmt.Errorf("proposal not found: %w", domain.ErrNotFound)
		}
		if prop.Status != domain.ProposalPending {
			return nil, fmt.Errorf("proposal already %s: %w", prop.Status, domain.ErrConflict)
		}
		freelancerID = prop.FreelancerID
		verdict := "rejected"
		if accept {
			verdict = "accepted"
			prop.Status = domain.ProposalAccepted
			p.Status = domain.ProjectInProgress
			if !p.IsAssigned(prop.FreelancerID) {
				p.AssignedFreelancers = append(p.AssignedFreelancers, prop.FreelancerID)
			}
		} else {
			prop.Status = domain.ProposalRejected
		}
		ev := fanout.NewEvent(actorID, domain.NotificationTemplate{
			Type:    domain.NotifyProposal,
			Title:   "Proposal " + verdict,
			Content: fmt.Sprintf("Your proposal for %q was %s", p.Title, verdict),
			Link:    link(p.ProjectID),
			Related: domain.Related{ProjectID: p.ProjectID, UserID: actorID},
		}, prop.FreelancerID)
		return []*domain.OutboxEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	if accept {
		s.emitter.JoinRoom(ctx, freelancerID, realtime.ProjectRoom(p.ProjectID))
		s.emitter.Emit(ctx, realtime.ProjectRoom(p.ProjectID), realtime.EventProjectUpdated, p.ViewFor("", ""))
	}
	return p, nil
}

func (s *service) AcceptProposal(ctx context.Context, actorID, projectID, proposalID string) (*domain.Project, error) {
	return s.decide(ctx, actorID, projectID, proposalID, true)
}

func (s *service) RejectProposal(ctx context.Context, actorID, projectID, proposalID string) (*domain.Project, error) {
	return s.decide(ctx, actorID, projectID, proposalID, false)
}

func (s *service) AssignTeam(ctx context.Context, actorID, projectID string, req domain.AssignTeamRequest) (*domain.Project, error) {
	team, err := s.teams.Get(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}
	var previous string
	p, err := s.mutate(ctx, projectID, func(p *domain.Project) ([]*domain.OutboxEvent, error) {
		if err := requireOwner(p, actorID); err != nil {
			return nil, err
		}
		if p.Status == domain.ProjectCompleted || p.Status == domain.ProjectCancelled {
			return nil, fmt.Errorf("project is closed: %w", domain.ErrBadRequest)
		}
		if p.TeamID == team.TeamID {
			return nil, fmt.Errorf("team already assigned: %w", domain.ErrConflict)
		}
		previous = p.TeamID
		p.TeamID = team.TeamID
		ev := fanout.NewEvent(actorID, domain.NotificationTemplate{
			Type:    domain.NotifyProject,
			Title:   "Team assigned",
			Content: fmt.Sprintf("Your team %q was assigned to %q", team.Name, p.Title),
			Link:    link(p.ProjectID),
			Related: domain.Related{ProjectID: p.ProjectID, TeamID: team.TeamID},
		}, team.MemberIDs()...)
		return []*domain.OutboxEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	room := realtime.ProjectRoom(p.ProjectID)
	if previous != "" {
		s.dropTeamRoom(ctx, p, previous, team)
	}
	for _, m := range team.MemberIDs() {
		s.emitter.JoinRoom(ctx, m, room)
	}
	s.emitter.Emit(ctx, room, realtime.EventProjectUpdated, p.ViewFor("", ""))
	return p, nil
}

// dropTeamRoom removes the members of a replaced team from the project room
// unless they still take part some other way.
func (s *service) dropTeamRoom(ctx context.Context, p *domain.Project, previousID string, next *domain.Team) {
	old, err := s.teams.Get(ctx, previousID)
	if err != nil {
		zap.L().Warn("load replaced team", zap.String("team_id", previousID), zap.Error(err))
		return
	}
	room := realtime.ProjectRoom(p.ProjectID)
	for _, m := range old.MemberIDs() {
		if m != p.ClientID && !p.IsAssigned(m) && !next.IsMember(m) {
			s.emitter.LeaveRoom(ctx, m, room)
		}
	}
}

func (s *service) UpdateStatus(ctx context.Context, actorID, projectID string, req domain.UpdateProjectStatusRequest) (*domain.Project, error) {
	if req.Status != domain.ProjectCompleted && req.Status != domain.ProjectCancelled {
		return nil, fmt.Errorf("invalid status %q: %w", req.Status, domain.ErrBadRequest)
	}
	p, err := s.mutate(ctx, projectID, func(p *domain.Project) ([]*domain.OutboxEvent, error) {
		if err := requireOwner(p, actorID); err != nil {
			return nil, err
		}
		if p.Status == domain.ProjectCompleted || p.Status == domain.ProjectCancelled {
			return nil, fmt.Errorf("project already %s: %w", p.Status, domain.ErrConflict)
		}
		if req.Status == domain.ProjectCompleted && p.Status != domain.ProjectInProgress {
			return nil, fmt.Errorf("only in-progress projects can be completed: %w", domain.ErrBadRequest)
		}
		p.Status = req.Status
		members, err := s.access.Participants(ctx, p)
		if err != nil {
			return nil, err
		}
		ev := fanout.NewEvent(actorID, domain.NotificationTemplate{
			Type:    domain.NotifyProject,
			Title:   "Project " + strings.ReplaceAll(req.Status, "_", " "),
			Content: fmt.Sprintf("%q is now %s", p.Title, req.Status),
			Link:    link(p.ProjectID),
			Related: domain.Related{ProjectID: p.ProjectID},
		}, members...)
		return []*domain.OutboxEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, realtime.ProjectRoom(p.ProjectID), realtime.EventProjectUpdated, p.ViewFor("", ""))
	return p, nil
}

// BroadcastUpdate relays a free-form project update from a participant to the
// project room.
func (s *service) BroadcastUpdate(ctx context.Context, actorID, projectID string, update any) error {
	p, err := s.access.Project(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	s.emitter.Emit(ctx, realtime.ProjectRoom(p.ProjectID), realtime.EventProjectUpdated, map[string]any{
		"project_id": p.ProjectID,
		"user_id":    actorID,
		"update":     update,
	})
	return nil
}
