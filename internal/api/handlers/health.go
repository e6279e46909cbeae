package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves liveness and readiness. Nil backends are skipped, so
// an all-in-memory deployment is always ready.
type HealthHandler struct {
	db      *pgxpool.Pool
	redis   *redis.Client
	service string
	version string
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, service, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, service: service, version: version}
}

type infoResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Service: h.service,
		Version: h.version,
		Status:  "running",
		Endpoints: []string{
			"POST /upload",
			"GET /files",
			"DELETE /files",
			"DELETE /files/{filename}",
			"POST /chat",
			"GET /conversation",
			"DELETE /conversation",
			"GET /metrics",
			"GET /metrics/history",
		},
	})
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
