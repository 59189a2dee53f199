package server

import "net/http"

// SetupRoutes wires the REST endpoints and the websocket upgrade into a
// handler. The whole mux sits behind the CORS middleware so preflight
// requests are answered for every route.
func SetupRoutes(h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /auth", h.Auth)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /ws", h.WebSocket)
	return h.origins.cors(mux)
}
