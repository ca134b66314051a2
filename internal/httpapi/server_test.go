package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deployd/internal/orchestrator"
	"deployd/pkg/types"
)

type mockService struct {
	models    []types.Model
	status    types.StatusResponse
	ready     bool
	deployErr error
	lastCmd   orchestrator.Command
	list      []types.Deployment
	rec       *types.Deployment
	getErr    error
	termErr   error
}

func (m *mockService) Models() []types.Model       { return append([]types.Model(nil), m.models...) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                 { return m.ready }

func (m *mockService) Deploy(ctx context.Context, cmd orchestrator.Command) (*types.DeployResponse, error) {
	m.lastCmd = cmd
	if m.deployErr != nil {
		return nil, m.deployErr
	}
	return &types.DeployResponse{
		Deployment: types.Deployment{
			ID: "dep-1", ModelID: cmd.ModelID, UserID: cmd.UserID, APIName: cmd.APIName,
			Host: cmd.Host, Port: cmd.Port, Status: "ready",
		},
		APIKey: "dk_0123456789abcdef0123456789abcdef",
	}, nil
}

func (m *mockService) List(ctx context.Context, userID string) ([]types.Deployment, error) {
	return m.list, nil
}

func (m *mockService) Get(ctx context.Context, id string) (*types.Deployment, error) {
	return m.rec, m.getErr
}

func (m *mockService) Terminate(ctx context.Context, id string) (*types.Deployment, error) {
	return m.rec, m.termErr
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func deployBody() string {
	return `{"model_id":"gpt2-large","user_id":"u1","api_name":"gpt-large-polaris","ssh_config":{"host":"24.83.13.62","username":"tang","port":"11000","password":"pw"}}`
}

func newRecorderFor(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func postDeploy(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deploy", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "m1"}, {ID: "m2"}}}
	r := NewMux(svc)
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("content-type=%s", ct) }
	var body map[string][]types.Model
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if len(body["models"]) != 2 { t.Fatalf("models len=%d", len(body["models"])) }
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{BudgetMB: 10}}
	r := NewMux(svc)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.BudgetMB != 10 { t.Fatalf("unexpected body: %+v", body) }
}

func TestReadyz(t *testing.T) {
	svc := &mockService{ready: true}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestReadyz_NotReady(t *testing.T) {
	svc := &mockService{ready: false}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), "loading") { t.Fatalf("body=%q", w.Body.String()) }
}

func TestHealthz(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestDeployOK(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postDeploy(r, deployBody())
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	var resp types.DeployResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil { t.Fatalf("json: %v", err) }
	if resp.ID != "dep-1" || resp.APIKey == "" { t.Fatalf("unexpected body: %+v", resp) }
	if svc.lastCmd.Port != 11000 { t.Fatalf("port not parsed: %+v", svc.lastCmd) }
	if svc.lastCmd.SSHUser != "tang" { t.Fatalf("ssh user: %+v", svc.lastCmd) }
}

func TestDeployBadJSON(t *testing.T) {
	r := NewMux(&mockService{})
	w := postDeploy(r, "not-json")
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
}

func TestDeployUnsupportedMediaType(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deploy", bytes.NewBufferString(deployBody()))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType { t.Fatalf("status=%d", w.Code) }
}

func TestDeployBodyTooLarge(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	big := make([]byte, (1<<20)+10)
	for i := range big { big[i] = 'a' }
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deploy", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest { t.Fatalf("expected 400 for too-large body, got %d", w.Code) }
}

func TestDeployMissingFields(t *testing.T) {
	cases := map[string]string{
		"model_id":   `{"user_id":"u","api_name":"a","ssh_config":{"host":"h","username":"u","port":"1","password":"p"}}`,
		"user_id":    `{"model_id":"m","api_name":"a","ssh_config":{"host":"h","username":"u","port":"1","password":"p"}}`,
		"api_name":   `{"model_id":"m","user_id":"u","ssh_config":{"host":"h","username":"u","port":"1","password":"p"}}`,
		"ssh host":   `{"model_id":"m","user_id":"u","api_name":"a","ssh_config":{"username":"u","port":"1","password":"p"}}`,
		"password":   `{"model_id":"m","user_id":"u","api_name":"a","ssh_config":{"host":"h","username":"u","port":"1"}}`,
		"bad port":   `{"model_id":"m","user_id":"u","api_name":"a","ssh_config":{"host":"h","username":"u","port":"abc","password":"p"}}`,
		"port range": `{"model_id":"m","user_id":"u","api_name":"a","ssh_config":{"host":"h","username":"u","port":"70000","password":"p"}}`,
	}
	for name, body := range cases {
		r := NewMux(&mockService{})
		if w := postDeploy(r, body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestDeployHTTPErrorPassthrough(t *testing.T) {
	svc := &mockService{deployErr: mockHTTPError{msg: "teapot", code: http.StatusTeapot}}
	r := NewMux(svc)
	w := postDeploy(r, deployBody())
	if w.Code != http.StatusTeapot { t.Fatalf("status=%d", w.Code) }
}

func TestListDeployments(t *testing.T) {
	svc := &mockService{list: []types.Deployment{{ID: "dep-1"}, {ID: "dep-2"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/deployments?user_id=u1", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.DeploymentsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if len(body.Deployments) != 2 { t.Fatalf("deployments len=%d", len(body.Deployments)) }
}

func TestGetDeployment(t *testing.T) {
	svc := &mockService{rec: &types.Deployment{ID: "dep-1", Status: "ready"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/deployments/dep-1", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var rec types.Deployment
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil { t.Fatalf("json: %v", err) }
	if rec.ID != "dep-1" { t.Fatalf("unexpected body: %+v", rec) }
}

func TestTerminateDeployment(t *testing.T) {
	svc := &mockService{rec: &types.Deployment{ID: "dep-1", Status: "terminated"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/deployments/dep-1", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}
