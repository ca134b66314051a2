package deployctl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"deployd/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/deploy", func(w http.ResponseWriter, r *http.Request) {
		var req types.DeployRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ModelID == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "model not found: missing", Code: 404})
			return
		}
		_ = json.NewEncoder(w).Encode(types.DeployResponse{
			Deployment: types.Deployment{ID: "dep-1", ModelID: req.ModelID, Status: "ready"},
			APIKey:     "dk_deadbeef",
		})
	})
	mux.HandleFunc("GET /api/v1/deployments", func(w http.ResponseWriter, r *http.Request) {
		list := []types.Deployment{{ID: "dep-1"}, {ID: "dep-2"}}
		if r.URL.Query().Get("user_id") == "u2" {
			list = list[:1]
		}
		_ = json.NewEncoder(w).Encode(types.DeploymentsResponse{Deployments: list})
	})
	mux.HandleFunc("DELETE /api/v1/deployments/dep-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.Deployment{ID: "dep-1", Status: "terminated"})
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.StatusResponse{BudgetMB: 8192})
	})
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.ModelsResponse{Models: []types.Model{{ID: "gpt2-large"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestClientDeploy(t *testing.T) {
	_, c := newTestServer(t)
	resp, err := c.Deploy(context.Background(), types.DeployRequest{ModelID: "gpt2-large"})
	require.NoError(t, err)
	require.Equal(t, "dep-1", resp.ID)
	require.Equal(t, "dk_deadbeef", resp.APIKey)
}

func TestClientDeployErrorSurfacesMessage(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Deploy(context.Background(), types.DeployRequest{ModelID: "missing"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not found")
	require.Contains(t, err.Error(), "404")
}

func TestClientListFiltersByUser(t *testing.T) {
	_, c := newTestServer(t)
	list, err := c.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = c.List(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestClientTerminate(t *testing.T) {
	_, c := newTestServer(t)
	rec, err := c.Terminate(context.Background(), "dep-1")
	require.NoError(t, err)
	require.Equal(t, "terminated", rec.Status)
}

func TestClientStatusAndModels(t *testing.T) {
	_, c := newTestServer(t)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8192, st.BudgetMB)

	models, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
}

func TestDeployRequiresPassword(t *testing.T) {
	t.Setenv("DEPLOYCTL_SSH_PASSWORD", "")
	code := Main([]string{"deploy", "--model", "m", "--user", "u", "--api-name", "a",
		"--host", "h", "--ssh-user", "s", "--ssh-port", "11000"})
	require.Equal(t, 1, code)
}
