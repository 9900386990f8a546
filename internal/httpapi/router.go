package httpapi

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"sdgplan/collab/internal/auth"
	"sdgplan/collab/internal/collab"
	"sdgplan/collab/internal/storage"
)

// NewRouter wires the REST API, the websocket endpoint and the health check.
func NewRouter(store storage.Store, server *collab.Server, ident auth.Identifier) *mux.Router {
	forms := NewFormHandler(store, server)

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/health", healthCheck(server)).Methods(http.MethodGet)
	r.HandleFunc("/ws/forms/{formID}", forms.ServeWebsocket).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(corsMiddleware)
	api.Use(auth.Middleware(ident))

	api.HandleFunc("/forms", forms.CreateForm).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/forms/{formID}", forms.GetForm).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/forms/{formID}", forms.UpdateForm).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/forms/{formID}/google-doc", forms.CreateGoogleDoc).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/forms/{formID}/collaborators", forms.Collaborators).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the websocket upgrade must hijack the unwrapped writer
		if r.Header.Get("Upgrade") != "" {
			glog.V(1).Infof("Request: %s %s (upgrade)", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		glog.V(1).Infof("Request: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// corsMiddleware answers preflight requests before authentication runs.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthCheck(server *collab.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "healthy",
			"service":      "sdgplan-collab",
			"active_rooms": len(server.Registry().Rooms()),
		})
	}
}
