package domain

import (
	"slices"
	"time"
)

const (
	ProjectOpen       = "open"
	ProjectInProgress = "in_progress"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

const (
	ProposalPending  = "pending"
	ProposalAccepted = "accepted"
	ProposalRejected = "rejected"
)

type Project struct {
	ProjectID           string     `json:"id" dynamodbav:"project_id"`
	ClientID            string     `json:"client_id" dynamodbav:"client_id"`
	Title               string     `json:"title" dynamodbav:"title"`
	Description         string     `json:"description" dynamodbav:"description"`
	Skills              []string   `json:"skills" dynamodbav:"skills"`
	Budget              float64    `json:"budget" dynamodbav:"budget"`
	Deadline            *time.Time `json:"deadline,omitempty" dynamodbav:"deadline,omitempty"`
	Status              string     `json:"status" dynamodbav:"status"`
	AssignedFreelancers []string   `json:"assigned_freelancers" dynamodbav:"assigned_freelancers"`
	TeamID              string     `json:"team_id,omitempty" dynamodbav:"team_id"`
	TaskIDs             []string   `json:"task_ids" dynamodbav:"task_ids"`
	Proposals           []Proposal `json:"proposals" dynamodbav:"proposals"`
	Version             int        `json:"version" dynamodbav:"version"`
	CreatedAt           time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type Proposal struct {
	ProposalID   string    `json:"id" dynamodbav:"proposal_id"`
	FreelancerID string    `json:"freelancer_id" dynamodbav:"freelancer_id"`
	CoverLetter  string    `json:"cover_letter" dynamodbav:"cover_letter"`
	Bid          float64   `json:"bid" dynamodbav:"bid"`
	Status       string    `json:"status" dynamodbav:"status"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

// Proposal returns the embedded proposal with the given id.
func (p *Project) Proposal(proposalID string) (*Proposal, bool) {
	for i := range p.Proposals {
		if p.Proposals[i].ProposalID == proposalID {
			return &p.Proposals[i], true
		}
	}
	return nil, false
}

// HasProposalFrom reports whether freelancerID already submitted a proposal.
func (p *Project) HasProposalFrom(freelancerID string) bool {
	for _, pr := range p.Proposals {
		if pr.FreelancerID == freelancerID {
			return true
		}
	}
	return false
}

// ViewFor returns a copy of p holding only the proposals viewerID may read.
// The owner client and admins see every proposal, a freelancer sees their
// own, and an empty viewer sees none.
func (p *Project) ViewFor(viewerID, role string) *Project {
	out := *p
	if viewerID != "" && (role == RoleAdmin || viewerID == p.ClientID) {
		out.Proposals = slices.Clone(p.Proposals)
		return &out
	}
	out.Proposals = []Proposal{}
	if viewerID == "" {
		return &out
	}
	for _, pr := range p.Proposals {
		if pr.FreelancerID == viewerID {
			out.Proposals = append(out.Proposals, pr)
		}
	}
	return &out
}

// IsAssigned reports whether userID is one of the assigned freelancers.
func (p *Project) IsAssigned(userID string) bool {
	return slices.Contains(p.AssignedFreelancers, userID)
}

type CreateProjectRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=10000"`
	Skills      []string   `json:"skills" validate:"max=30,dive,max=50"`
	Budget      float64    `json:"budget" validate:"gte=0"`
	Deadline    *time.Time `json:"deadline"`
}

type UpdateProjectRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	Skills      *[]string  `json:"skills" validate:"omitempty,max=30,dive,max=50"`
	Budget      *float64   `json:"budget" validate:"omitempty,gte=0"`
	Deadline    *time.Time `json:"deadline"`
}

type SubmitProposalRequest struct {
	CoverLetter string  `json:"cover_letter" validate:"required,max=5000"`
	Bid         float64 `json:"bid" validate:"gte=0"`
}

type AssignTeamRequest struct {
	TeamID string `json:"team_id" validate:"required"`
}

type UpdateProjectStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=completed cancelled"`
}

// ProjectFilter narrows project listings. Empty fields match everything.
type ProjectFilter struct {
	Status   string
	ClientID string
	Skill    string
}
