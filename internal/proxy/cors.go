package proxy

import "net/http"

// writeCORS sets the proxy's CORS headers on every response. A recognized
// Origin is echoed back; anything else gets the first allowed origin, so the
// browser still fails the check for unlisted callers. Returns the resolved
// origin for logging.
func writeCORS(w http.ResponseWriter, r *http.Request, allowed []string) string {
	if len(allowed) == 0 {
		return ""
	}
	origin := r.Header.Get("Origin")
	resolved := allowed[0]
	for _, o := range allowed {
		if o == origin {
			resolved = origin
			break
		}
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", resolved)
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	h.Add("Vary", "Origin")
	return resolved
}
