package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/checkgate/checkgate/internal/gate"
	"github.com/checkgate/checkgate/internal/policy"
	"github.com/checkgate/checkgate/internal/storage"
)

// Store is the minimal contract the API needs.
type Store interface {
	ListEvaluations(limit, offset int) ([]storage.EvalRow, error)
	LoadEvaluation(id string) (gate.Evaluation, error)
	LoadLatestEvaluation() (gate.Evaluation, error)
	ListResults(evalID, category, outcome string) ([]policy.RuleResult, error)

	ListWaivers(activeOnly bool) ([]gate.Waiver, error)
	CreateWaiver(ruleID, source, reason, createdBy string, expires time.Time) (int64, error)
	RevokeWaiver(id int64, by string) error
}

// UserStore is the auth/audit contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	LogAudit(username, action, resource string, meta map[string]any) error
}

type Server struct {
	DB              Store
	UserStore       UserStore
	Policy          *policy.RuleSet
	Logger          *slog.Logger
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	// Health
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", withCORS(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", withCORS(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", withCORS(withAuth(s, s.handleMe, "me")))

	// Evaluations
	mux.HandleFunc("GET /api/v1/evaluations", withCORS(s.handleListEvaluations))
	mux.HandleFunc("GET /api/v1/evaluations/latest", withCORS(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/evaluations/{id}", withCORS(s.handleGetEvaluation))
	mux.HandleFunc("GET /api/v1/evaluations/{id}/results", withCORS(s.handleListResults))

	// Policy inventory
	mux.HandleFunc("GET /api/v1/rules", withCORS(s.handleRules))

	// Waivers
	mux.HandleFunc("GET /api/v1/waivers", withCORS(withAuth(s, s.handleListWaivers, "waivers:list")))
	mux.HandleFunc("POST /api/v1/waivers", withCORS(withAdmin(s, s.handleCreateWaiver, "waivers:create")))
	mux.HandleFunc("POST /api/v1/waivers/{id}/revoke", withCORS(withAdmin(s, s.handleRevokeWaiver, "waivers:revoke")))

	// Fallback 404
	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := parseInt(q.Get("offset"), 0)

	rows, err := s.DB.ListEvaluations(limit, offset)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	ev, err := s.DB.LoadLatestEvaluation()
	if err != nil {
		s.err(w, http.StatusNotFound, "no evaluations")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ev, err := s.DB.LoadEvaluation(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.err(w, http.StatusNotFound, "evaluation not found")
			return
		}
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()

	category := ""
	if c := q.Get("category"); c != "" {
		cat, ok := policy.ParseCategory(c)
		if !ok {
			s.err(w, http.StatusBadRequest, "unknown category")
			return
		}
		category = string(cat)
	}
	outcome := strings.ToUpper(strings.TrimSpace(q.Get("outcome")))
	switch outcome {
	case "", "PASS", "FAIL", "NOT_EVALUATED":
	default:
		s.err(w, http.StatusBadRequest, "unknown outcome")
		return
	}

	items, err := s.DB.ListResults(id, category, outcome)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"eval_id": id, "category": category, "outcome": outcome, "items": items,
	})
}

// GET /api/v1/rules — the loaded policy (no auth needed for read-only)
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID          string `json:"id"`
		Category    string `json:"category"`
		Description string `json:"description,omitempty"`
		Required    bool   `json:"required"`
	}
	var out []R
	if s.Policy != nil {
		for _, rule := range s.Policy.Rules() {
			out = append(out, R{
				ID:          rule.ID,
				Category:    string(rule.Category),
				Description: rule.Description,
				Required:    rule.Required,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
