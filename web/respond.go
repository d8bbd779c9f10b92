package web

import (
	"encoding/json"
	"net/http"
)

// detail is the envelope for plain status responses, matching the wire
// format clients already consume.
type detail struct {
	Detail string `json:"detail"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Encoding failures past this point cannot change the status line.
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a {"detail": ...} response with the given status code.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detail{Detail: msg})
}
