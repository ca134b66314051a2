package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deployd/internal/orchestrator"
	"deployd/internal/provision"
	"deployd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() []types.Model
	Status() types.StatusResponse
	Deploy(ctx context.Context, cmd orchestrator.Command) (*types.DeployResponse, error)
	List(ctx context.Context, userID string) ([]types.Deployment, error)
	Get(ctx context.Context, id string) (*types.Deployment, error)
	Terminate(ctx context.Context, id string) (*types.Deployment, error)
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.Models()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/deploy", deployHandler(svc))

		api.Get("/deployments", func(w http.ResponseWriter, r *http.Request) {
			list, err := svc.List(r.Context(), r.URL.Query().Get("user_id"))
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(types.DeploymentsResponse{Deployments: list})
		})

		api.Get("/deployments/{id}", func(w http.ResponseWriter, r *http.Request) {
			rec, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if orchestrator.IsDeploymentNotFound(err) {
					writeJSONError(w, http.StatusNotFound, err.Error())
					return
				}
				writeJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rec)
		})

		api.Delete("/deployments/{id}", func(w http.ResponseWriter, r *http.Request) {
			joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			rec, err := svc.Terminate(joinedCtx, chi.URLParam(r, "id"))
			if err != nil {
				switch {
				case orchestrator.IsDeploymentNotFound(err):
					writeJSONError(w, http.StatusNotFound, err.Error())
				case orchestrator.IsConflict(err):
					writeJSONError(w, http.StatusConflict, err.Error())
				default:
					writeJSONError(w, http.StatusInternalServerError, err.Error())
				}
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rec)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func deployHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.DeployRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		cmd, msg := validateDeploy(req)
		if msg != "" {
			writeJSONError(w, http.StatusBadRequest, msg)
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		rid := middleware.GetReqID(r.Context())
		if lvl >= LevelInfo {
			logEvent(rid, "deploy start", 0, 0, nil, map[string]string{
				"model": cmd.ModelID, "api_name": cmd.APIName, "host": cmd.Host,
			})
		}

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Deploy(joinedCtx, cmd)
		if err != nil {
			// Client went away; nobody is left to read a response.
			if r.Context().Err() != nil {
				return
			}
			// Server shutdown canceled the work; tell the client so.
			if serverBaseCtx.Err() != nil {
				writeJSONError(w, http.StatusServiceUnavailable, "server shutting down")
				return
			}
			status := deployErrorStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure(backpressureReason(err))
			}
			writeJSONError(w, status, err.Error())
			if lvl >= LevelInfo {
				logEvent(rid, "deploy end", status, time.Since(start), err, nil)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
		if lvl >= LevelInfo {
			logEvent(rid, "deploy end", http.StatusOK, time.Since(start), nil, nil)
		}
	}
}

// validateDeploy checks required fields and parses the service port.
// Returns a non-empty message on validation failure.
func validateDeploy(req types.DeployRequest) (orchestrator.Command, string) {
	var cmd orchestrator.Command
	switch {
	case strings.TrimSpace(req.ModelID) == "":
		return cmd, "model_id is required"
	case strings.TrimSpace(req.UserID) == "":
		return cmd, "user_id is required"
	case strings.TrimSpace(req.APIName) == "":
		return cmd, "api_name is required"
	case strings.TrimSpace(req.SSHConfig.Host) == "":
		return cmd, "ssh_config.host is required"
	case strings.TrimSpace(req.SSHConfig.Username) == "":
		return cmd, "ssh_config.username is required"
	case strings.TrimSpace(req.SSHConfig.Port) == "":
		return cmd, "ssh_config.port is required"
	case req.SSHConfig.Password == "":
		return cmd, "ssh_config.password is required"
	}
	port, err := strconv.Atoi(strings.TrimSpace(req.SSHConfig.Port))
	if err != nil || port < 1 || port > 65535 {
		return cmd, "ssh_config.port must be a TCP port number"
	}
	return orchestrator.Command{
		ModelID:     strings.TrimSpace(req.ModelID),
		UserID:      strings.TrimSpace(req.UserID),
		APIName:     strings.TrimSpace(req.APIName),
		Host:        strings.TrimSpace(req.SSHConfig.Host),
		Port:        port,
		SSHUser:     strings.TrimSpace(req.SSHConfig.Username),
		SSHPassword: req.SSHConfig.Password,
	}, ""
}

// deployErrorStatus maps well-known orchestrator and provisioning errors
// to HTTP status codes.
func deployErrorStatus(err error) int {
	switch {
	case orchestrator.IsModelNotFound(err):
		return http.StatusNotFound
	case orchestrator.IsConflict(err):
		return http.StatusConflict
	case orchestrator.IsTooBusy(err), orchestrator.IsCapacityExceeded(err):
		return http.StatusTooManyRequests
	case provision.IsUnreachable(err):
		return http.StatusServiceUnavailable
	case provision.IsAuthFailure(err), provision.IsRemoteFailure(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func backpressureReason(err error) string {
	if orchestrator.IsCapacityExceeded(err) {
		return "capacity"
	}
	return "queue"
}
