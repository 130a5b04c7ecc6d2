package handler

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Pager describes the page a list response covers.
type Pager struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	PageCount int64 `json:"pageCount"`
}

func newPager(page, pageSize int, total int64) Pager {
	pageCount := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pageCount++
	}
	return Pager{Page: page, PageSize: pageSize, Total: total, PageCount: pageCount}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
