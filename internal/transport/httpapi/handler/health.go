package handler

import "net/http"

// GetHealth reports process liveness.
func GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
