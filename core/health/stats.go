package health

import (
	"encoding/json"
	"net/http"
)

// Stats serves the value returned by fn as JSON. fn is called per request.
//
// Example:
//
//	mux.Handle("GET /stats", health.Stats(func() any {
//		return map[string]any{"server": srv.Stats(), "cache": lru.Stats()}
//	}))
func Stats(fn func() any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body, err := json.Marshal(fn())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}
