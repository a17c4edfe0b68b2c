package http_test

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/services/access"
	controlhttp "bridgebot/internal/services/control/http"
	"bridgebot/internal/services/relay/domain"
	"bridgebot/internal/services/verify"
)

const adminKey = "test-admin-key"

// fakeRegistry is a map-backed stand-in for the real registry
type fakeRegistry struct {
	services map[string]domain.Service
	stopped  []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{services: make(map[string]domain.Service)}
}

func (f *fakeRegistry) Create(_ context.Context, key domain.ServiceKey) (domain.Credentials, error) {
	id := key.ID()
	if _, ok := f.services[id]; ok {
		return domain.Credentials{}, perr.Conflictf("service %q already exists", id)
	}
	svc := domain.Service{Key: key, ID: id, Port: 8080, APIKey: "key", Active: true}
	f.services[id] = svc
	return domain.Credentials{ServiceID: id, APIKey: "key", Port: 8080}, nil
}

func (f *fakeRegistry) UpdateCommands(_ context.Context, id string, cmds []domain.CommandDefinition) error {
	svc, ok := f.services[id]
	if !ok {
		return perr.NotFoundf("service %q not found", id)
	}
	svc.Commands = cmds
	f.services[id] = svc
	return nil
}

func (f *fakeRegistry) AddCommand(_ context.Context, id string, def domain.CommandDefinition) error {
	svc, ok := f.services[id]
	if !ok {
		return perr.NotFoundf("service %q not found", id)
	}
	svc.Commands = append(svc.Commands, def)
	f.services[id] = svc
	return nil
}

func (f *fakeRegistry) Stop(_ context.Context, id string) error {
	delete(f.services, id)
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeRegistry) Get(id string) (domain.Service, bool) {
	svc, ok := f.services[id]
	return svc, ok
}

func (f *fakeRegistry) List() []domain.Summary {
	out := make([]domain.Summary, 0, len(f.services))
	for _, svc := range f.services {
		out = append(out, domain.Summary{ServiceID: svc.ID, Name: svc.Key.Name})
	}
	return out
}

type fakeProfiles struct{ desc string }

func (f *fakeProfiles) LookupID(_ context.Context, username string) (int64, error) {
	if username == "nobody" {
		return 0, perr.NotFoundf("roblox user %q not found", username)
	}
	return 156, nil
}

func (f *fakeProfiles) Description(_ context.Context, _ int64) (string, error) {
	return f.desc, nil
}

type fixture struct {
	handler  stdhttp.Handler
	registry *fakeRegistry
	profiles *fakeProfiles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := newFakeRegistry()
	profiles := &fakeProfiles{}
	h := controlhttp.NewHandler(controlhttp.Deps{
		Registry: reg,
		Gate:     access.NewGate(),
		Verify:   verify.New(profiles),
		AdminKey: func() (string, bool) { return adminKey, true },
		Swagger:  true,
	})
	return &fixture{handler: h, registry: reg, profiles: profiles}
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, path, body string, auth bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+adminKey)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
	}
	return rr, env
}

func (f *fixture) createService(t *testing.T) domain.Credentials {
	t.Helper()
	rr, env := f.do(t, stdhttp.MethodPost, "/services",
		`{"guild_id":100,"user_id":200,"service_name":"lobby"}`, true)
	if rr.Code != stdhttp.StatusCreated {
		t.Fatalf("create service: expected 201 got %d: %s", rr.Code, env.Error)
	}
	var creds domain.Credentials
	if err := json.Unmarshal(env.Data, &creds); err != nil {
		t.Fatalf("decode credentials: %v", err)
	}
	return creds
}

func TestGatedRoutesRequireAdminKey(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, stdhttp.MethodPost, "/services",
		`{"guild_id":100,"user_id":200,"service_name":"lobby"}`, false)
	if rr.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without the admin key, got %d", rr.Code)
	}
}

func TestHealthIsOpen(t *testing.T) {
	f := newFixture(t)

	rr, env := f.do(t, stdhttp.MethodGet, "/health", "", false)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if data.Status != "healthy" {
		t.Fatalf("unexpected health payload %+v", data)
	}
}

func TestCreateService(t *testing.T) {
	f := newFixture(t)
	creds := f.createService(t)
	if creds.ServiceID != "100-200-lobby" {
		t.Fatalf("unexpected service id %q", creds.ServiceID)
	}
}

func TestCreateServiceValidation(t *testing.T) {
	f := newFixture(t)
	rr, _ := f.do(t, stdhttp.MethodPost, "/services", `{"guild_id":100}`, true)
	if rr.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for a missing service_name, got %d", rr.Code)
	}
}

func TestDeleteServiceByOwner(t *testing.T) {
	f := newFixture(t)
	creds := f.createService(t)

	rr, env := f.do(t, stdhttp.MethodDelete,
		"/services/"+creds.ServiceID+"?requested_by=200", "", true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, env.Error)
	}
	if len(f.registry.stopped) != 1 || f.registry.stopped[0] != creds.ServiceID {
		t.Fatalf("registry was not asked to stop: %+v", f.registry.stopped)
	}
}

func TestDeleteServiceByStrangerIsForbidden(t *testing.T) {
	f := newFixture(t)
	creds := f.createService(t)

	rr, _ := f.do(t, stdhttp.MethodDelete,
		"/services/"+creds.ServiceID+"?requested_by=999", "", true)
	if rr.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
	if len(f.registry.stopped) != 0 {
		t.Fatal("forbidden delete must not stop the service")
	}
}

func TestDeleteUnknownServiceIsIdempotent(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, stdhttp.MethodDelete, "/services/100-200-ghost?requested_by=200", "", true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 for an absent service, got %d", rr.Code)
	}
}

func TestReplaceCommands(t *testing.T) {
	f := newFixture(t)
	creds := f.createService(t)

	rr, env := f.do(t, stdhttp.MethodPut, "/services/"+creds.ServiceID+"/commands",
		`{"requested_by":200,"commands":[{"command_name":"teleport","active":true}]}`, true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, env.Error)
	}

	svc, _ := f.registry.Get(creds.ServiceID)
	if len(svc.Commands) != 1 || svc.Commands[0].Name != "teleport" {
		t.Fatalf("commands were not replaced: %+v", svc.Commands)
	}
}

func TestReplaceCommandsUnknownService(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, stdhttp.MethodPut, "/services/100-200-ghost/commands",
		`{"requested_by":200,"commands":[]}`, true)
	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestGrantAllowsDelegatedManagement(t *testing.T) {
	f := newFixture(t)
	creds := f.createService(t)

	// stranger is forbidden before the grant
	rr, _ := f.do(t, stdhttp.MethodPut, "/services/"+creds.ServiceID+"/commands",
		`{"requested_by":300,"commands":[{"command_name":"kick","active":true}]}`, true)
	if rr.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", rr.Code)
	}

	rr, _ = f.do(t, stdhttp.MethodPost, "/grants",
		`{"guild_id":100,"owner_id":200,"grantee_id":300,"level":"full"}`, true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("grant: expected 200 got %d", rr.Code)
	}

	rr, _ = f.do(t, stdhttp.MethodPut, "/services/"+creds.ServiceID+"/commands",
		`{"requested_by":300,"commands":[{"command_name":"kick","active":true}]}`, true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 after grant, got %d", rr.Code)
	}

	rr, _ = f.do(t, stdhttp.MethodDelete,
		"/grants?guild_id=100&owner_id=200&grantee_id=300", "", true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("revoke: expected 200 got %d", rr.Code)
	}

	rr, _ = f.do(t, stdhttp.MethodPut, "/services/"+creds.ServiceID+"/commands",
		`{"requested_by":300,"commands":[]}`, true)
	if rr.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 after revoke, got %d", rr.Code)
	}
}

func TestAddCommand(t *testing.T) {
	f := newFixture(t)
	creds := f.createService(t)

	rr, env := f.do(t, stdhttp.MethodPost, "/services/"+creds.ServiceID+"/commands",
		`{"requested_by":200,"command":{"command_name":"spawn","active":true}}`, true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, env.Error)
	}
	svc, _ := f.registry.Get(creds.ServiceID)
	if len(svc.Commands) != 1 {
		t.Fatalf("command was not added: %+v", svc.Commands)
	}
}

func TestVerifyFlow(t *testing.T) {
	f := newFixture(t)

	rr, env := f.do(t, stdhttp.MethodPost, "/verify",
		`{"chat_user_id":42,"username":"builderman"}`, true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("verify begin: expected 200 got %d: %s", rr.Code, env.Error)
	}
	var att struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &att); err != nil {
		t.Fatalf("decode attempt: %v", err)
	}

	// confirm fails until the code is in the profile description
	rr, _ = f.do(t, stdhttp.MethodPost, "/verify/confirm", `{"chat_user_id":42}`, true)
	if rr.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 before the code is placed, got %d", rr.Code)
	}

	f.profiles.desc = "profile with " + att.Code
	rr, _ = f.do(t, stdhttp.MethodPost, "/verify/confirm", `{"chat_user_id":42}`, true)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 after the code is placed, got %d", rr.Code)
	}
}

func TestVerifyUnknownUsername(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, stdhttp.MethodPost, "/verify",
		`{"chat_user_id":42,"username":"nobody"}`, true)
	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestSwaggerDocServed(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, stdhttp.MethodGet, "/docs/doc.json", "", false)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}
	if doc["openapi"] == "" {
		t.Fatal("expected an openapi version field")
	}
}

func TestSwaggerDisabled(t *testing.T) {
	f := newFixture(t)
	h := controlhttp.NewHandler(controlhttp.Deps{
		Registry: f.registry,
		Gate:     access.NewGate(),
		Verify:   verify.New(f.profiles),
		AdminKey: func() (string, bool) { return adminKey, true },
		Swagger:  false,
	})

	req := httptest.NewRequest(stdhttp.MethodGet, "/docs/doc.json", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 when swagger is disabled, got %d", rr.Code)
	}
}
