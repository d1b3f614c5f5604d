package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/solindex-labs/solindex/app/server/types"
	"github.com/solindex-labs/solindex/pkg/utils"
)

// User is one API user able to manage jobs.
type User struct {
	Username string `json:"username"`
	Hash     []byte `json:"hash"`
	Role     string `json:"role"`
}

type Controller struct {
	App           *types.App
	AdminToken    string
	WebhookSecret string
	AuthUser      string
	Users         map[string]User
	AuthHash      []byte
	JWTSecret     []byte
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	adminToken := utils.Env("ADMIN_TOKEN", "devtoken")
	webhookSecret := utils.Env("WEBHOOK_SECRET", "")
	adminUser := utils.Env("ADMIN_USER", "admin")
	adminUsersJSON := utils.Env("ADMIN_USERS", "")
	adminPass := utils.Env("ADMIN_PASSWORD", "admin")
	jwtSecret := []byte(utils.Env("SESSION_SECRET", "change-me-please"))

	phash, _ := utils.HashOrRead(adminPass)
	users := map[string]User{}
	users[adminUser] = User{Username: adminUser, Hash: phash, Role: "admin"}
	if adminUsersJSON != "" {
		_ = json.Unmarshal([]byte(adminUsersJSON), &users)
	}

	return &Controller{
		App:           app,
		AdminToken:    adminToken,
		WebhookSecret: webhookSecret,
		AuthUser:      adminUser,
		Users:         users,
		AuthHash:      phash,
		JWTSecret:     jwtSecret,
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodPut+", "+http.MethodPatch+", "+http.MethodDelete+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/api/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	// Login/Logout
	r.HandleFunc("/api/auth/login", c.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", c.HandleLogout).Methods(http.MethodPost)

	// Webhook ingest, authenticated by the shared webhook secret
	r.Handle("/api/webhooks", http.HandlerFunc(c.HandleWebhook)).Methods(http.MethodPost)

	// Job management
	r.Handle("/api/jobs/create", c.RequireAuth(http.HandlerFunc(c.HandleCreateJob))).Methods(http.MethodPost)
	r.Handle("/api/jobs/{id}", c.RequireAuth(http.HandlerFunc(c.HandleJobDetail))).Methods(http.MethodGet)
	r.Handle("/api/jobs/{id}/logs", c.RequireAuth(http.HandlerFunc(c.HandleJobLogs))).Methods(http.MethodGet)
	r.Handle("/api/jobs/{id}/stop", c.RequireAuth(http.HandlerFunc(c.HandleStopJob))).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
