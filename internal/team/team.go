// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

// Package team manages progress-sharing teams.
//
// A team has an owner, a bcrypt-hashed join password and up to MaxMembers
// members. Team rows live in the teams table keyed by team id; each member
// has a team_members row keyed by user id pointing at their team. A user
// belongs to at most one team. When the owner leaves, the team is disbanded.
package team

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/store"
)

// MaxMembers bounds team size, owner included.
const MaxMembers = 10

var (
	ErrNotFound      = errors.New("team not found")
	ErrNotInTeam     = errors.New("user is not in a team")
	ErrAlreadyInTeam = errors.New("user is already in a team")
	ErrWrongPassword = errors.New("wrong team password")
	ErrTeamFull      = errors.New("team is full")
)

// Team is a stored team.
type Team struct {
	ID        string    `json:"team_id"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	JoinHash  string    `json:"join_hash"`
	CreatedAt time.Time `json:"created_at"`
}

type membership struct {
	TeamID string `json:"team_id"`
}

// Listener is told when a team's membership changes. affected holds the
// current members plus anyone who just left.
type Listener interface {
	TeamChanged(ctx context.Context, teamID string, members, affected []string)
}

// Service manages teams.
type Service struct {
	teams    *store.Table
	members  *store.Table
	cost     int
	listener Listener
	now      func() time.Time

	mu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithBcryptCost overrides the join password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithListener registers a membership change listener.
func WithListener(l Listener) Option {
	return func(s *Service) { s.listener = l }
}

// NewService creates a Service over the teams and team_members tables.
func NewService(db *store.DB, opts ...Option) *Service {
	s := &Service{
		teams:   db.Table(store.TableTeams, "team_id"),
		members: db.Table(store.TableTeamMembers, "user_id"),
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetListener registers l after construction, for listeners that need the
// Service themselves.
func (s *Service) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// Create makes userID the owner of a new team. An empty password is
// replaced by a generated one; the plaintext is returned once.
func (s *Service) Create(ctx context.Context, userID, password string) (Team, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.teamIDOf(ctx, userID); err == nil {
		return Team{}, "", ErrAlreadyInTeam
	} else if !errors.Is(err, ErrNotInTeam) {
		return Team{}, "", err
	}

	if password == "" {
		var err error
		if password, err = generatePassword(); err != nil {
			return Team{}, "", err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Team{}, "", fmt.Errorf("bcrypt failed: %w", err)
	}

	t := Team{
		ID:        uuid.NewString(),
		Owner:     userID,
		Members:   []string{userID},
		JoinHash:  string(hash),
		CreatedAt: s.now().UTC(),
	}
	if err := s.saveTeam(ctx, t); err != nil {
		return Team{}, "", err
	}
	if err := s.setMembership(ctx, userID, t.ID); err != nil {
		return Team{}, "", err
	}

	logging.Ctx(ctx).Info().Str("team_id", t.ID).Msg("Team created")
	s.notify(ctx, t)
	return t, password, nil
}

// Join adds userID to teamID after checking password.
func (s *Service) Join(ctx context.Context, userID, teamID, password string) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.teamIDOf(ctx, userID); err == nil {
		return Team{}, ErrAlreadyInTeam
	} else if !errors.Is(err, ErrNotInTeam) {
		return Team{}, err
	}

	t, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return Team{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(t.JoinHash), []byte(password)); err != nil {
		return Team{}, ErrWrongPassword
	}
	if len(t.Members) >= MaxMembers {
		return Team{}, ErrTeamFull
	}

	t.Members = append(t.Members, userID)
	if err := s.saveTeam(ctx, t); err != nil {
		return Team{}, err
	}
	if err := s.setMembership(ctx, userID, t.ID); err != nil {
		return Team{}, err
	}

	logging.Ctx(ctx).Info().Str("team_id", t.ID).Int("members", len(t.Members)).Msg("Team joined")
	s.notify(ctx, t)
	return t, nil
}

// Leave removes userID from their team. An owner leaving disbands the team.
func (s *Service) Leave(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	teamID, err := s.teamIDOf(ctx, userID)
	if err != nil {
		return err
	}
	t, err := s.loadTeam(ctx, teamID)
	if errors.Is(err, ErrNotFound) {
		return s.members.Delete(ctx, userID)
	}
	if err != nil {
		return err
	}

	if t.Owner == userID {
		for _, m := range t.Members {
			if err := s.members.Delete(ctx, m); err != nil {
				return err
			}
		}
		if err := s.teams.Delete(ctx, t.ID); err != nil {
			return err
		}
		logging.Ctx(ctx).Info().Str("team_id", t.ID).Msg("Team disbanded")
		former := t.Members
		t.Members = nil
		s.notify(ctx, t, former...)
		return nil
	}

	t.Members = slices.DeleteFunc(t.Members, func(m string) bool { return m == userID })
	if err := s.saveTeam(ctx, t); err != nil {
		return err
	}
	if err := s.members.Delete(ctx, userID); err != nil {
		return err
	}
	s.notify(ctx, t, userID)
	return nil
}

// Get returns userID's team.
func (s *Service) Get(ctx context.Context, userID string) (Team, error) {
	teamID, err := s.teamIDOf(ctx, userID)
	if err != nil {
		return Team{}, err
	}
	return s.loadTeam(ctx, teamID)
}

// Teammates returns the other members of userID's team. A user without a
// team has no teammates.
func (s *Service) Teammates(ctx context.Context, userID string) ([]string, error) {
	t, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotInTeam) || errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m != userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) teamIDOf(ctx context.Context, userID string) (string, error) {
	row, _, err := s.members.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotInTeam
	}
	if err != nil {
		return "", err
	}
	var m membership
	if err := store.Decode(row, &m); err != nil {
		return "", fmt.Errorf("decode membership: %w", err)
	}
	if m.TeamID == "" {
		return "", ErrNotInTeam
	}
	return m.TeamID, nil
}

func (s *Service) loadTeam(ctx context.Context, teamID string) (Team, error) {
	row, _, err := s.teams.Get(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, err
	}
	var t Team
	if err := store.Decode(row, &t); err != nil {
		return Team{}, fmt.Errorf("decode team: %w", err)
	}
	return t, nil
}

func (s *Service) saveTeam(ctx context.Context, t Team) error {
	row, err := store.Encode(t)
	if err != nil {
		return fmt.Errorf("encode team: %w", err)
	}
	_, _, err = s.teams.Upsert(ctx, t.ID, row, "")
	return err
}

func (s *Service) setMembership(ctx context.Context, userID, teamID string) error {
	_, _, err := s.members.Upsert(ctx, userID, store.Row{"team_id": teamID}, "")
	return err
}

func (s *Service) notify(ctx context.Context, t Team, departed ...string) {
	if s.listener == nil {
		return
	}
	affected := slices.Clone(t.Members)
	for _, u := range departed {
		if !slices.Contains(affected, u) {
			affected = append(affected, u)
		}
	}
	s.listener.TeamChanged(ctx, t.ID, slices.Clone(t.Members), affected)
}

func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
