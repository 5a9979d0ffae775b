// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarkovtracker/internal/auth"
	"github.com/tomtom215/tarkovtracker/internal/authz"
	"github.com/tomtom215/tarkovtracker/internal/config"
	"github.com/tomtom215/tarkovtracker/internal/debounce"
	"github.com/tomtom215/tarkovtracker/internal/edgecache"
	"github.com/tomtom215/tarkovtracker/internal/progress"
	"github.com/tomtom215/tarkovtracker/internal/store"
	"github.com/tomtom215/tarkovtracker/internal/tarkovdata"
	"github.com/tomtom215/tarkovtracker/internal/team"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
	ws "github.com/tomtom215/tarkovtracker/internal/websocket"
)

const testSecret = "api-test-secret-with-at-least-32-chars"

var testPayloads = map[string]string{
	"tasks-core": `{"data":{"tasks":[` +
		`{"id":"t1","name":"Debut"},` +
		`{"id":"t2","name":"Shootout picnic","failConditions":[{"id":"f1","type":"taskStatus","task":{"id":"t1"},"status":["complete"]}]}]}}`,
	"tasks-rewards": `{"data":{"tasks":[{"id":"t1"},{"id":"t2"}]}}`,
	"hideout": `{"data":{"hideoutStations":[{"id":"st-gen","name":"Generator","normalizedName":"generator",` +
		`"levels":[{"id":"gen-1","level":1},{"id":"gen-2","level":2}]}]}}`,
	"traders": `{"data":{"traders":[{"id":"prapor","name":"Prapor"}]}}`,
}

type fakeGraphQL struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeGraphQL) Fetch(_ context.Context, _ string, _ map[string]any, opts upstream.FetchOptions) (*upstream.Response, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &upstream.Response{Raw: []byte(testPayloads[opts.Name])}, nil
}

func (f *fakeGraphQL) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeGraphQL) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	t        *testing.T
	handler  *Handler
	server   http.Handler
	jwt      *auth.JWTManager
	gql      *fakeGraphQL
	db       *store.DB
	progress *progress.Service
	hub      *ws.Hub
}

// newTestEnv wires every service against an in-memory store and a fake
// upstream. mutate may adjust the dependencies before the router is built.
func newTestEnv(t *testing.T, mutate ...func(*Dependencies)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			CORSOrigins:       []string{"https://tracker.test"},
			RateLimitDisabled: true,
			AdminUserIDs:      []string{"admin-1"},
		},
	}

	db, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gql := &fakeGraphQL{}
	cache := edgecache.New(edgecache.NewMemoryStore(0, time.Minute), edgecache.Config{DefaultHost: "tracker.test"})
	data := tarkovdata.New(gql, cache, nil, time.Hour)

	teams := team.NewService(db, team.WithBcryptCost(4))
	hub := ws.NewHub(teams)
	teams.SetListener(hub)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	svc := progress.NewService(db.Table(store.TableUserProgress, "user_id"), data,
		debounce.New[string](time.Hour), progress.WithNotifier(hub))

	deps := Dependencies{
		Config:      cfg,
		Data:        data,
		Cache:       cache,
		Store:       db,
		Progress:    svc,
		Preferences: db.Table(store.TableUserPreferences, "user_id"),
		Teams:       teams,
		Hub:         hub,
	}
	for _, m := range mutate {
		m(&deps)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{AdminUserIDs: cfg.Security.AdminUserIDs})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(enforcer.Close)

	handler := NewHandler(deps)
	router := NewRouter(handler, auth.NewMiddleware(jwtManager), authz.NewMiddleware(enforcer),
		NewChiMiddlewareFromSecurity(cfg.Security.CORSOrigins, 0, 0, true))

	return &testEnv{
		t:        t,
		handler:  handler,
		server:   router.SetupChi(),
		jwt:      jwtManager,
		gql:      gql,
		db:       db,
		progress: svc,
		hub:      hub,
	}
}

func (e *testEnv) token(userID string) string {
	e.t.Helper()
	tok, err := e.jwt.GenerateToken(userID, "authenticated", time.Hour)
	if err != nil {
		e.t.Fatal(err)
	}
	return tok
}

// do sends a request as userID ("" for anonymous) and returns the recorder.
func (e *testEnv) do(method, target, userID string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				e.t.Fatal(err)
			}
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("unsuccessful response: %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestTarkovDataset_MissThenHit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/tarkov/traders?lang=de&gameMode=pve", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("X-Cache-Status = %q, want MISS", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != edgecache.CacheControl(time.Hour) {
		t.Errorf("Cache-Control = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if rec.Body.String() != testPayloads["traders"] {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/tarkov/traders?lang=de&gameMode=pve", "", nil)
	if got := rec.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("second X-Cache-Status = %q, want HIT", got)
	}
	if env.gql.count() != 1 {
		t.Errorf("upstream calls = %d, want 1", env.gql.count())
	}

	rec = env.do(http.MethodGet, "/api/tarkov/traders?lang=de&gameMode=pve&nocache=1", "", nil)
	if got := rec.Header().Get("X-Cache-Status"); got != "BYPASS" {
		t.Errorf("bypass X-Cache-Status = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("bypass Cache-Control = %q", got)
	}
}

func TestTarkovDataset_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"unknown dataset", "/api/tarkov/weapons", http.StatusBadRequest},
		{"bad lang", "/api/tarkov/traders?lang=xx", http.StatusBadRequest},
		{"bad game mode", "/api/tarkov/traders?gameMode=arena", http.StatusBadRequest},
		{"defaults", "/api/tarkov/traders", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.target, "", nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusBadRequest {
				if e := decodeEnvelope(t, rec).Error; e == nil || e.Code != ErrCodeValidationFailed {
					t.Errorf("error = %+v", e)
				}
			}
		})
	}
}

func TestTarkovDataset_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gql.setErr(&upstream.FetchError{Query: "items", Attempts: 3, Err: errors.New("boom")})

	rec := env.do(http.MethodGet, "/api/tarkov/items", "", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeEnvelope(t, rec).Error; e == nil || e.Code != ErrCodeExternalServiceFail || e.RequestID == "" {
		t.Errorf("error = %+v", e)
	}
}

func TestTarkovEditions_WithoutOverlay(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/tarkov/editions?gameMode=pve", "", nil)
	var got struct {
		GameMode string                 `json:"gameMode"`
		Editions map[string]interface{} `json:"editions"`
	}
	decodeData(t, rec, &got)
	if got.GameMode != "pve" || len(got.Editions) != 0 {
		t.Errorf("editions = %+v", got)
	}

	if rec := env.do(http.MethodGet, "/api/tarkov/editions?gameMode=arena", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid game mode status = %d", rec.Code)
	}
}

func TestProgress_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/progress", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("WWW-Authenticate header missing")
	}
}

func TestProgress_GetPutAndConflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/progress", "u1", nil)
	var loaded progress.Snapshot
	decodeData(t, rec, &loaded)
	if loaded.State.CurrentGameMode != progress.ModePvP || loaded.State.PvP.Level != 1 {
		t.Errorf("new user state = %+v", loaded.State)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}

	// t2 is failed without its cause (t1 complete); gen-2 is built without gen-1.
	client := progress.NewUserState()
	client.PvP.Level = 15
	client.PvP.UpdatedAt = 10
	client.PvP.TaskCompletions = map[string]progress.TaskCompletion{
		"t2": {Failed: true, Timestamp: 5},
	}
	client.PvP.HideoutModules = map[string]progress.HideoutModule{
		"gen-2": {Complete: true, Timestamp: 5},
	}

	rec = env.do(http.MethodPut, "/api/progress", "u1", client)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("ETag missing")
	}
	var saved progress.Snapshot
	decodeData(t, rec, &saved)
	if saved.State.PvP.Level != 15 {
		t.Errorf("level = %d", saved.State.PvP.Level)
	}
	if saved.State.PvP.TaskCompletions["t2"].Failed {
		t.Error("uncaused failure should be repaired")
	}
	if saved.State.PvP.HideoutModules["gen-2"].Complete {
		t.Error("gen-2 without gen-1 should be removed")
	}
	report := saved.Repairs[progress.ModePvP]
	if report.FailedTasks != 1 || report.HideoutPrereqs != 1 {
		t.Errorf("repairs = %+v", saved.Repairs)
	}

	rec = env.do(http.MethodPut, "/api/progress", "u1", client, "If-Match", `"stale"`)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("stale If-Match status = %d", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/progress", "u1", client, "If-Match", etag)
	if rec.Code != http.StatusOK {
		t.Fatalf("matching If-Match status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(http.MethodPut, "/api/progress", "u1", "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d", rec.Code)
	}
	bad := progress.NewUserState()
	bad.CurrentGameMode = "arena"
	if rec := env.do(http.MethodPut, "/api/progress", "u1", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown currentGameMode status = %d", rec.Code)
	}
}

func TestProgress_PatchTaskDebounced(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/progress/pve/tasks/t1", "u1", map[string]bool{"complete": true})
	var got struct {
		Mode       string                  `json:"mode"`
		TaskID     string                  `json:"taskId"`
		Completion progress.TaskCompletion `json:"completion"`
	}
	decodeData(t, rec, &got)
	if got.Mode != "pve" || got.TaskID != "t1" || !got.Completion.Complete || got.Completion.Timestamp == 0 {
		t.Errorf("patch result = %+v", got)
	}

	table := env.db.Table(store.TableUserProgress, "user_id")
	if _, err := table.GetRaw(context.Background(), "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("write should be debounced, got %v", err)
	}
	env.progress.Flush()
	if _, err := table.GetRaw(context.Background(), "u1"); err != nil {
		t.Fatalf("write missing after flush: %v", err)
	}

	tests := []struct {
		name   string
		target string
		body   interface{}
		want   int
	}{
		{"unknown mode", "/api/progress/arena/tasks/t1", map[string]bool{"complete": true}, http.StatusBadRequest},
		{"bad task id", "/api/progress/pvp/tasks/$bad", map[string]bool{"complete": true}, http.StatusBadRequest},
		{"empty update", "/api/progress/pvp/tasks/t1", map[string]bool{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(http.MethodPatch, tt.target, "u1", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestProgress_EnforceHideout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/progress/pvp/hideout/enforce", "u1", nil)
	var got map[string]int
	decodeData(t, rec, &got)
	if got["removed"] != 0 {
		t.Errorf("removed = %d", got["removed"])
	}

	if rec := env.do(http.MethodPost, "/api/progress/arena/hideout/enforce", "u1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d", rec.Code)
	}

	if _, err := env.handler.cache.Purge(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	env.handler.data.InvalidateReference()
	env.gql.setErr(&upstream.FetchError{Query: "hideout", Attempts: 3, Err: errors.New("down")})
	if rec := env.do(http.MethodPost, "/api/progress/pvp/hideout/enforce", "u2", nil); rec.Code != http.StatusBadGateway {
		t.Errorf("reference failure status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/preferences", "u1", nil)
	var empty map[string]interface{}
	decodeData(t, rec, &empty)
	if len(empty) != 0 {
		t.Errorf("new user preferences = %v", empty)
	}

	rec = env.do(http.MethodPut, "/api/preferences", "u1", map[string]interface{}{"theme": "dark", "user_id": "someone-else"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}
	etag := rec.Header().Get("ETag")

	rec = env.do(http.MethodGet, "/api/preferences", "u1", nil)
	var prefs map[string]interface{}
	decodeData(t, rec, &prefs)
	if prefs["theme"] != "dark" || prefs["user_id"] != "u1" {
		t.Errorf("preferences = %v", prefs)
	}
	if rec.Header().Get("ETag") != etag {
		t.Errorf("GET ETag = %q, want %q", rec.Header().Get("ETag"), etag)
	}

	if rec := env.do(http.MethodPut, "/api/preferences", "u1", map[string]interface{}{"theme": "light"}, "If-Match", `"old"`); rec.Code != http.StatusPreconditionFailed {
		t.Errorf("stale If-Match status = %d", rec.Code)
	}
	if rec := env.do(http.MethodPut, "/api/preferences", "u1", "[1,2]"); rec.Code != http.StatusBadRequest {
		t.Errorf("array body status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/api/health/live", "", nil); rec.Code != http.StatusOK {
		t.Errorf("live status = %d", rec.Code)
	}
	rec := env.do(http.MethodGet, "/api/health/ready", "", nil)
	var ready map[string]interface{}
	decodeData(t, rec, &ready)
	if ready["ready"] != true || ready["upstream"] != "unknown" {
		t.Errorf("ready = %v", ready)
	}

	_ = env.db.Close()
	if rec := env.do(http.MethodGet, "/api/health/ready", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready after close status = %d", rec.Code)
	}
}

func TestServiceUnavailableWithoutDependencies(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Progress = nil
		d.Issues = nil
		d.AuthProvider = nil
	})

	if rec := env.do(http.MethodGet, "/api/progress", "u1", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("progress status = %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/api/github/issues", "", map[string]string{}); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("issues status = %d", rec.Code)
	}
}
