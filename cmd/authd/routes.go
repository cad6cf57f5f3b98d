package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 16

type handlers struct {
	engine *authcore.Engine
}

// newRouter maps the HTTP API onto engine. metrics may be nil.
func newRouter(engine *authcore.Engine, trustProxy bool, metrics http.Handler) *mux.Router {
	h := &handlers{engine: engine}
	guard := middleware.Guard(engine)
	admin := func(next http.HandlerFunc) http.Handler {
		return guard(middleware.RequireRole(authcore.RoleAdmin)(next))
	}

	router := mux.NewRouter()
	router.Use(middleware.ClientInfo(trustProxy))

	router.HandleFunc("/status", h.status).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}

	router.HandleFunc("/auth/register", h.register).Methods("POST")
	router.HandleFunc("/auth/login", h.login).Methods("POST")
	router.HandleFunc("/auth/forgot-password", h.forgotPassword).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.resetPassword).Methods("POST")

	router.Handle("/auth/me", guard(http.HandlerFunc(h.me))).Methods("GET")
	router.Handle("/auth/change-password", guard(http.HandlerFunc(h.changePassword))).Methods("POST")
	router.Handle("/auth/delete-account", guard(http.HandlerFunc(h.deleteAccount))).Methods("DELETE")
	router.Handle("/auth/activity-logs", guard(http.HandlerFunc(h.ownActivityLogs))).Methods("GET")

	router.Handle("/users/{id}/role", admin(h.changeRole)).Methods("PUT")
	router.Handle("/admin/activity-logs", admin(h.allActivityLogs)).Methods("GET")
	router.Handle("/admin/activity-logs/{action}", admin(h.actionActivityLogs)).Methods("GET")

	return router
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req authcore.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.engine.Register(r.Context(), req))
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req authcore.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.engine.Login(r.Context(), req))
}

func (h *handlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authcore.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.engine.ForgotPassword(r.Context(), req))
}

func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req authcore.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.engine.ResetPassword(r.Context(), req))
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id, _ := authcore.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]string{
			"id":    id.UserID,
			"email": id.Email,
			"role":  id.Role,
		},
	})
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req authcore.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.engine.ChangePassword(r.Context(), req))
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var req authcore.DeleteAccountRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.engine.DeleteAccount(r.Context(), req))
}

func (h *handlers) changeRole(w http.ResponseWriter, r *http.Request) {
	var req authcore.ChangeRoleRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = mux.Vars(r)["id"]
	writeResult(w, h.engine.ChangeRole(r.Context(), req))
}

func (h *handlers) ownActivityLogs(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.engine.ActivityLogs(r.Context(), authcore.ActivityQuery{Limit: limitParam(r)}))
}

func (h *handlers) allActivityLogs(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.engine.ActivityLogs(r.Context(), authcore.ActivityQuery{All: true, Limit: limitParam(r)}))
}

func (h *handlers) actionActivityLogs(w http.ResponseWriter, r *http.Request) {
	q := authcore.ActivityQuery{Action: mux.Vars(r)["action"], Limit: limitParam(r)}
	writeResult(w, h.engine.ActivityLogs(r.Context(), q))
}

// limitParam reads ?limit=. Invalid or missing values yield 0, which the
// engine replaces with its default.
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, res *authcore.Result) {
	writeJSON(w, res.Status, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
