// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package team

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/tarkovtracker/internal/store"
)

type recordingListener struct {
	mu       sync.Mutex
	events   [][]string
	affected [][]string
}

func (l *recordingListener) TeamChanged(_ context.Context, _ string, members, affected []string) {
	l.mu.Lock()
	l.events = append(l.events, members)
	l.affected = append(l.affected, affected)
	l.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *recordingListener) {
	t.Helper()
	db, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	l := &recordingListener{}
	return NewService(db, WithBcryptCost(bcrypt.MinCost), WithListener(l)), l
}

func TestCreateJoinLeave(t *testing.T) {
	svc, listener := newTestService(t)
	ctx := context.Background()

	team, password, err := svc.Create(ctx, "owner", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if password == "" || team.JoinHash == password {
		t.Fatal("generated password must be returned and stored hashed")
	}
	if _, _, err := svc.Create(ctx, "owner", "x"); !errors.Is(err, ErrAlreadyInTeam) {
		t.Errorf("second Create() error = %v", err)
	}

	if _, err := svc.Join(ctx, "alice", team.ID, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.Join(ctx, "alice", "missing", password); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing team error = %v", err)
	}
	joined, err := svc.Join(ctx, "alice", team.ID, password)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if len(joined.Members) != 2 {
		t.Errorf("members = %v", joined.Members)
	}

	mates, err := svc.Teammates(ctx, "alice")
	if err != nil || len(mates) != 1 || mates[0] != "owner" {
		t.Errorf("Teammates(alice) = %v, %v", mates, err)
	}

	if err := svc.Leave(ctx, "alice"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if _, err := svc.Get(ctx, "alice"); !errors.Is(err, ErrNotInTeam) {
		t.Errorf("Get() after leave error = %v", err)
	}
	got, err := svc.Get(ctx, "owner")
	if err != nil || len(got.Members) != 1 {
		t.Errorf("owner team = %+v, %v", got, err)
	}

	if len(listener.events) != 3 {
		t.Fatalf("listener events = %d, want 3", len(listener.events))
	}
	if last := listener.affected[2]; len(last) != 2 || last[1] != "alice" {
		t.Errorf("leave should notify the leaver too: %v", last)
	}
}

func TestOwnerLeaveDisbands(t *testing.T) {
	svc, listener := newTestService(t)
	ctx := context.Background()

	team, _, err := svc.Create(ctx, "owner", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, "bob", team.ID, "hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Leave(ctx, "owner"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	last := listener.affected[len(listener.affected)-1]
	if len(listener.events[len(listener.events)-1]) != 0 || len(last) != 2 {
		t.Errorf("disband event members=%v affected=%v", listener.events[len(listener.events)-1], last)
	}
	for _, u := range []string{"owner", "bob"} {
		if _, err := svc.Get(ctx, u); !errors.Is(err, ErrNotInTeam) {
			t.Errorf("%s still in a team: %v", u, err)
		}
	}
	if mates, err := svc.Teammates(ctx, "bob"); err != nil || len(mates) != 0 {
		t.Errorf("Teammates() = %v, %v", mates, err)
	}
	if err := svc.Leave(ctx, "bob"); !errors.Is(err, ErrNotInTeam) {
		t.Errorf("Leave() without team error = %v", err)
	}
}

func TestJoinFullTeam(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	team, _, err := svc.Create(ctx, "owner", "pw")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < MaxMembers; i++ {
		if _, err := svc.Join(ctx, string(rune('a'+i)), team.ID, "pw"); err != nil {
			t.Fatalf("Join #%d error = %v", i, err)
		}
	}
	if _, err := svc.Join(ctx, "late", team.ID, "pw"); !errors.Is(err, ErrTeamFull) {
		t.Errorf("error = %v, want ErrTeamFull", err)
	}
}

func TestSetListener(t *testing.T) {
	db, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(db, WithBcryptCost(bcrypt.MinCost))
	if _, _, err := svc.Create(context.Background(), "solo", "pw"); err != nil {
		t.Fatalf("Create() without listener error = %v", err)
	}

	l := &recordingListener{}
	svc.SetListener(l)
	if err := svc.Leave(context.Background(), "solo"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.affected) != 1 || len(l.affected[0]) != 1 || l.affected[0][0] != "solo" {
		t.Errorf("affected = %v", l.affected)
	}
}
