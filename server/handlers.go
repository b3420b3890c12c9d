// Copyright (c) 2025 Eternadex Authors

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
)

// httpPostJSONHandler adapts a typed request/response function into an http
// handler. Validation failures map to 400, not-found to 404 and everything
// else to 500.
func httpPostJSONHandler[REQ any, RESP any](fn func(context.Context, *REQ) (*RESP, error)) http.Handler {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "expected POST method", http.StatusMethodNotAllowed)
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrNotExist):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, os.ErrInvalid):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				slog.ErrorContext(r.Context(), "request handler failed", "path", r.URL.Path, "err", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("content-type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "could not encode response (ignored)", "path", r.URL.Path, "err", err)
		}
	}
	return http.HandlerFunc(handler)
}
