// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package tarkovdata

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/edgecache"
	"github.com/tomtom215/tarkovtracker/internal/overlay"
	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
)

var payloads = map[string]string{
	"tasks-core": `{"data":{"tasks":[` +
		`{"id":"t1","name":"Debut","minPlayerLevel":1},` +
		`{"id":"t2","name":"Shootout picnic","minPlayerLevel":3,"failConditions":[{"id":"f1","type":"taskStatus","task":{"id":"t1"},"status":["complete"]}]}]}}`,
	"tasks-rewards": `{"data":{"tasks":[{"id":"t1"},{"id":"t3","name":"Rewards only"}]}}`,
	"hideout": `{"data":{"hideoutStations":[{"id":"st-stash","name":"Stash","normalizedName":"stash",` +
		`"levels":[{"id":"stash-1","level":1},{"id":"stash-2","level":2}]}]}}`,
	"traders": `{"data":{"traders":[{"id":"prapor","name":"Prapor"}]}}`,
}

type fakeGraphQL struct {
	mu    sync.Mutex
	calls []string
	vars  []map[string]any
	err   error
}

func (f *fakeGraphQL) Fetch(_ context.Context, _ string, variables map[string]any, opts upstream.FetchOptions) (*upstream.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts.Name)
	f.vars = append(f.vars, variables)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	body := payloads[opts.Name]
	return &upstream.Response{Raw: []byte(body)}, nil
}

func (f *fakeGraphQL) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const testOverlay = `{
  "$meta": {"version": "2026.10.1"},
  "tasks": {"t1": {"minPlayerLevel": 10}},
  "editions": {
    "standard": {"value": 1, "defaultStashLevel": 1, "defaultCultistCircleLevel": 0},
    "eod": {"value": 4, "defaultStashLevel": 4, "defaultCultistCircleLevel": 0}
  },
  "modes": {"pve": {"editions": {"standard": {"defaultStashLevel": 2}}}}
}`

func newTestService(t *testing.T, gql GraphQL, withOverlay bool) *Service {
	t.Helper()
	cache := edgecache.New(edgecache.NewMemoryStore(0, time.Minute), edgecache.Config{DefaultHost: "tracker.test"})
	var ov *overlay.Service
	if withOverlay {
		ov = overlay.NewService(overlay.StaticSource(testOverlay), overlay.Config{TTL: time.Hour})
	}
	return New(gql, cache, ov, time.Hour)
}

func TestDataset_MissThenHit(t *testing.T) {
	gql := &fakeGraphQL{}
	svc := newTestService(t, gql, true)
	ctx := context.Background()
	req := Request{Dataset: "tasks-core"}

	first, err := svc.Dataset(ctx, nil, req)
	if err != nil {
		t.Fatalf("Dataset() error = %v", err)
	}
	if first.Status != edgecache.StatusMiss {
		t.Errorf("status = %s, want MISS", first.Status)
	}
	if !bytes.Contains(first.Body, []byte(`"minPlayerLevel":10`)) {
		t.Errorf("overlay not applied: %s", first.Body)
	}
	if first.CacheControl != "public, max-age=3600, s-maxage=3600" {
		t.Errorf("Cache-Control = %q", first.CacheControl)
	}

	second, err := svc.Dataset(ctx, nil, req)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != edgecache.StatusHit || !bytes.Equal(second.Body, first.Body) {
		t.Errorf("second = %s, want identical HIT", second.Status)
	}
	if gql.count() != 1 {
		t.Errorf("upstream calls = %d, want 1", gql.count())
	}
	if gql.vars[0]["lang"] != DefaultLang || gql.vars[0]["gameMode"] != DefaultGameMode {
		t.Errorf("variables = %v, want defaults", gql.vars[0])
	}
}

func TestDataset_KeysVaryByLangAndMode(t *testing.T) {
	gql := &fakeGraphQL{}
	svc := newTestService(t, gql, false)
	ctx := context.Background()

	for _, req := range []Request{
		{Dataset: "traders", Lang: "en", GameMode: "regular"},
		{Dataset: "traders", Lang: "de", GameMode: "regular"},
		{Dataset: "traders", Lang: "en", GameMode: "pve"},
	} {
		res, err := svc.Dataset(ctx, nil, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != edgecache.StatusMiss {
			t.Errorf("%+v status = %s, want MISS", req, res.Status)
		}
	}
	if gql.count() != 3 {
		t.Errorf("upstream calls = %d, want 3", gql.count())
	}
}

func TestDataset_Bypass(t *testing.T) {
	gql := &fakeGraphQL{}
	svc := newTestService(t, gql, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.Dataset(ctx, nil, Request{Dataset: "traders", Bypass: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != edgecache.StatusBypass || res.CacheControl != "no-store" {
			t.Errorf("result = %s %q, want BYPASS no-store", res.Status, res.CacheControl)
		}
	}
	if gql.count() != 2 {
		t.Errorf("upstream calls = %d, want 2", gql.count())
	}
}

func TestDataset_Errors(t *testing.T) {
	gql := &fakeGraphQL{err: errors.New("upstream down")}
	svc := newTestService(t, gql, false)
	ctx := context.Background()

	if _, err := svc.Dataset(ctx, nil, Request{Dataset: "ammo"}); !errors.Is(err, upstream.ErrUnknownDataset) {
		t.Errorf("unknown dataset error = %v", err)
	}
	if gql.count() != 0 {
		t.Error("unknown dataset reached upstream")
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Dataset(ctx, nil, Request{Dataset: "maps"}); err == nil || !strings.Contains(err.Error(), "upstream down") {
			t.Errorf("error = %v, want upstream failure", err)
		}
	}
	if gql.count() != 2 {
		t.Errorf("failed fetches must not be cached: calls = %d", gql.count())
	}
}

func TestEditions(t *testing.T) {
	svc := newTestService(t, &fakeGraphQL{}, true)

	eds, err := svc.Editions(context.Background(), "pve")
	if err != nil {
		t.Fatal(err)
	}
	std, _ := eds["standard"].(map[string]any)
	if std == nil || std["defaultStashLevel"].(interface{ String() string }).String() != "2" {
		t.Errorf("pve standard edition = %v", eds["standard"])
	}

	bare := newTestService(t, &fakeGraphQL{}, false)
	if eds, err := bare.Editions(context.Background(), ""); err != nil || len(eds) != 0 {
		t.Errorf("Editions() without overlay = %v, %v", eds, err)
	}
}

func TestReference(t *testing.T) {
	gql := &fakeGraphQL{}
	svc := newTestService(t, gql, true)
	ctx := context.Background()

	ref, err := svc.Reference(ctx, progress.ModePvP)
	if err != nil {
		t.Fatalf("Reference() error = %v", err)
	}
	if len(ref.Tasks) != 3 {
		t.Errorf("tasks = %d, want core and rewards combined", len(ref.Tasks))
	}
	if ref.Tasks["t1"].MinPlayerLevel != 10 {
		t.Errorf("t1 min level = %d, want overlay value", ref.Tasks["t1"].MinPlayerLevel)
	}
	if len(ref.Tasks["t2"].FailConditions) != 1 {
		t.Error("fail conditions not decoded")
	}
	if _, _, ok := ref.Stations.Module("stash-2"); !ok {
		t.Error("hideout station levels not indexed")
	}
	if e := ref.Edition(4); e.ID != "eod" || e.DefaultStashLevel != 4 {
		t.Errorf("edition 4 = %+v", e)
	}

	calls := gql.count()
	again, err := svc.Reference(ctx, progress.ModePvP)
	if err != nil || again != ref {
		t.Error("reference should be memoized")
	}
	if gql.count() != calls {
		t.Error("memoized reference refetched upstream")
	}

	pve, err := svc.Reference(ctx, progress.ModePvE)
	if err != nil {
		t.Fatal(err)
	}
	if e := pve.Edition(1); e.DefaultStashLevel != 2 {
		t.Errorf("pve standard stash level = %d, want 2", e.DefaultStashLevel)
	}
	last := gql.vars[len(gql.vars)-1]
	if last["gameMode"] != "pve" {
		t.Errorf("pve reference fetched with %v", last)
	}

	svc.InvalidateReference()
	fresh, err := svc.Reference(ctx, progress.ModePvP)
	if err != nil || fresh == ref {
		t.Error("InvalidateReference should force a rebuild")
	}
}

func TestReference_Expires(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	cache := edgecache.New(edgecache.NewMemoryStore(0, time.Minute), edgecache.Config{})
	svc := New(&fakeGraphQL{}, cache, nil, time.Hour, WithClock(func() time.Time { return now }))

	first, err := svc.Reference(context.Background(), progress.ModePvP)
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Hour)
	second, err := svc.Reference(context.Background(), progress.ModePvP)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("expired reference was reused")
	}
	if len(second.Editions) != 0 {
		t.Error("no overlay means no editions")
	}
}

func TestReference_UpstreamFailure(t *testing.T) {
	svc := newTestService(t, &fakeGraphQL{err: errors.New("boom")}, false)
	if _, err := svc.Reference(context.Background(), progress.ModePvP); err == nil {
		t.Fatal("Reference() should fail when tasks cannot be loaded")
	}
}
