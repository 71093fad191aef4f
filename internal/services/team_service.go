package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/metrics"
)

const datasetTeam = "team"

// TeamView is the caller's team plus where it came from.
type TeamView struct {
	Members   []core.TeamMember `json:"members"`
	Source    Source            `json:"source"`
	Persisted bool              `json:"persisted"`
}

// NewTeamMemberInput is a user-submitted team member. Role defaults to Member.
type NewTeamMemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (in NewTeamMemberInput) member(today core.Date) (core.TeamMember, error) {
	m := core.TeamMember{
		Name:     strings.TrimSpace(in.Name),
		JoinedAt: today,
	}
	if m.Name == "" {
		return core.TeamMember{}, fmt.Errorf("%w: name", core.ErrMissingField)
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return core.TeamMember{}, fmt.Errorf("%w: %q", core.ErrInvalidEmail, email)
		}
		m.Email = email
	}
	var err error
	if m.Role, err = core.ParseRole(in.Role); err != nil {
		return core.TeamMember{}, err
	}
	return m, nil
}

// TeamService lists and adds the members who share a caller's expenses.
type TeamService struct {
	store    TeamStore
	fallback *fallback.Dataset
	clock    core.Clock
	metrics  *metrics.Metrics
}

func NewTeamService(store TeamStore, ds *fallback.Dataset, clock core.Clock) *TeamService {
	if ds == nil {
		ds = fallback.Default()
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &TeamService{store: store, fallback: ds, clock: clock}
}

func (s *TeamService) WithMetrics(m *metrics.Metrics) *TeamService {
	s.metrics = m
	return s
}

// List returns the caller's team, or the sample team when the store
// cannot serve it.
func (s *TeamService) List(ctx context.Context, userID string) (TeamView, error) {
	members, err := s.store.ListTeamMembers(ctx, userID)
	if err != nil {
		reason, ok := fallbackReason(err)
		if !ok {
			return TeamView{}, fmt.Errorf("list team members: %w", err)
		}
		logFallback(ctx, datasetTeam, reason, err)
		s.metrics.RecordFallback(datasetTeam, reason)
		return TeamView{
			Members: append([]core.TeamMember{}, s.fallback.TeamMembers...),
			Source:  SourceFallback,
		}, nil
	}
	if members == nil {
		members = []core.TeamMember{}
	}
	return TeamView{Members: members, Source: SourceStore, Persisted: true}, nil
}

// Create adds a team member. Anonymous callers get the member back with a
// temporary id and nothing is stored.
func (s *TeamService) Create(ctx context.Context, userID string, in NewTeamMemberInput) (core.TeamMember, bool, error) {
	m, err := in.member(core.DateOf(s.clock.Now()))
	if err != nil {
		return core.TeamMember{}, false, err
	}

	if userID != "" {
		saved, err := s.store.AddTeamMember(ctx, userID, m)
		switch {
		case err == nil:
			s.metrics.RecordCreated(datasetTeam, true)
			slog.InfoContext(ctx, "Team member added",
				"record_id", saved.ID,
				"role", saved.Role)
			return saved, true, nil
		case !errors.Is(err, core.ErrUnauthenticated):
			return core.TeamMember{}, false, fmt.Errorf("save team member: %w", err)
		}
	}

	m.ID = "temp-" + uuid.NewString()
	s.metrics.RecordCreated(datasetTeam, false)
	slog.InfoContext(ctx, "Team member accepted without persistence", "record_id", m.ID)
	return m, false, nil
}
