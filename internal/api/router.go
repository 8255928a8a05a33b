package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/service"
)

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// Options configures the HTTP handler.
type Options struct {
	Logger       *zap.Logger
	CookieSecure bool
	// Version is reported by the service info route.
	Version string
}

// Handler serves the TaskSync HTTP API.
type Handler struct {
	svc          *service.Service
	logger       *zap.Logger
	cookieSecure bool
	version      string
	started      time.Time
}

// NewHandler wraps svc in an HTTP handler.
func NewHandler(svc *service.Service, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		svc:          svc,
		logger:       logger,
		cookieSecure: opts.CookieSecure,
		version:      version,
		started:      time.Now(),
	}
}

// NewRouter builds the full API router.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	h := NewHandler(svc, opts)
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers every API route on r under BasePath.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(requestID, h.accessLog, h.recoverPanic)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "Not found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed", "method not allowed")
	})

	api := r.PathPrefix(BasePath).Subrouter()

	// Public endpoints
	api.HandleFunc("", h.info).Methods("GET")
	api.HandleFunc("/", h.info).Methods("GET")
	api.HandleFunc("/health", h.health).Methods("GET")
	api.HandleFunc("/login", h.login).Methods("POST")
	api.HandleFunc("/register", h.register).Methods("POST")
	api.HandleFunc("/roles", h.roles).Methods("GET")
	api.HandleFunc("/auth/forgot-password", h.forgotPassword).Methods("POST")
	api.HandleFunc("/auth/verify-reset-code", h.verifyResetCode).Methods("POST")
	api.HandleFunc("/auth/reset-password", h.resetPassword).Methods("POST")

	priv := api.NewRoute().Subrouter()
	priv.Use(h.requireAuth)

	// Account
	priv.HandleFunc("/logout", h.logout).Methods("POST")
	priv.HandleFunc("/user", h.profile).Methods("GET")
	priv.HandleFunc("/user", h.updateProfile).Methods("PATCH")
	priv.HandleFunc("/user/change-password", h.changePassword).Methods("PATCH")
	priv.HandleFunc("/user/profile-picture", h.updateProfilePicture).Methods("PATCH")
	priv.HandleFunc("/users/search", h.searchUsers).Methods("GET")

	// Lists, todos and shares
	priv.HandleFunc("/lists", h.lists).Methods("GET")
	priv.HandleFunc("/list", h.createList).Methods("POST")
	priv.HandleFunc("/list/{list_id}", h.getList).Methods("GET")
	priv.HandleFunc("/list/{list_id}", h.updateList).Methods("PATCH")
	priv.HandleFunc("/list/{list_id}", h.deleteList).Methods("DELETE")
	priv.HandleFunc("/list/{list_id}/shares", h.listShares).Methods("GET")
	priv.HandleFunc("/list/{list_id}/share", h.shareList).Methods("POST")
	priv.HandleFunc("/list/{list_id}/share/{user_id}", h.updateShare).Methods("PATCH")
	priv.HandleFunc("/list/{list_id}/share/{user_id}", h.unshare).Methods("DELETE")
	priv.HandleFunc("/list/{list_id}/todos", h.todos).Methods("GET")
	priv.HandleFunc("/list/{list_id}/todo", h.createTodo).Methods("POST")
	priv.HandleFunc("/list/{list_id}/todo/{task_id}", h.getTodo).Methods("GET")
	priv.HandleFunc("/list/{list_id}/todo/{task_id}", h.updateTodo).Methods("PATCH")
	priv.HandleFunc("/list/{list_id}/todo/{task_id}", h.deleteTodo).Methods("DELETE")
	priv.HandleFunc("/list/{list_id}/todo/{task_id}/toggle", h.toggleTodo).Methods("POST")

	// Groups
	priv.HandleFunc("/groups", h.groups).Methods("GET")
	priv.HandleFunc("/groups/new", h.createGroup).Methods("POST")
	priv.HandleFunc("/groups/{group_id}", h.getGroup).Methods("GET")
	priv.HandleFunc("/groups/{group_id}", h.updateGroup).Methods("PATCH")
	priv.HandleFunc("/groups/{group_id}", h.deleteGroup).Methods("DELETE")
	priv.HandleFunc("/groups/{group_id}/role", h.myRole).Methods("GET")
	priv.HandleFunc("/groups/{group_id}/invite", h.invite).Methods("POST")
	priv.HandleFunc("/groups/{group_id}/role/mapping", h.changeRole).Methods("POST")
	priv.HandleFunc("/groups/{group_id}/members/{user_id}", h.removeMember).Methods("DELETE")
}

func (h *Handler) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "TaskSync API", map[string]any{
		"service": "tasksync",
		"status":  "running",
		"version": h.version,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeErrorMessage(w, http.StatusServiceUnavailable, "Unhealthy", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// currentUser returns the user set by requireAuth. Routes registered under
// the authenticated subrouter always carry one.
func currentUser(r *http.Request) string {
	u, _ := UserFrom(r.Context())
	return u.ID
}
