package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// healthHandler returns a 200 OK status with the active job store backend for readiness/liveness checks.
func healthHandler(store string) http.HandlerFunc {
	body := healthResponse{Status: "ok", Store: store}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, body)
	}
}
