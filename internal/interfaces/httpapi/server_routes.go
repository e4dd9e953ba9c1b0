package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/games", handler.SearchGames)
	mux.HandleFunc("GET /v1/games/{gameID}", handler.GetGame)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedGameRoutes(mux, handler, verifier)
	registerAuthorizedChatRoutes(mux, handler, verifier)
	registerAuthorizedNotificationRoutes(mux, handler, verifier)
	registerAuthorizedEventRoutes(mux, handler, verifier)
}

func registerAuthorizedGameRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/games", RequireAuth(verifier, http.HandlerFunc(handler.CreateGame)))
	mux.Handle("PUT /v1/games/{gameID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateGame)))
	mux.Handle("DELETE /v1/games/{gameID}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteGame)))
	mux.Handle("POST /v1/games/{gameID}/join", RequireAuth(verifier, http.HandlerFunc(handler.JoinGame)))
	mux.Handle("POST /v1/games/{gameID}/leave", RequireAuth(verifier, http.HandlerFunc(handler.LeaveGame)))
	mux.Handle("POST /v1/games/{gameID}/cancel", RequireAuth(verifier, http.HandlerFunc(handler.CancelGame)))
	mux.Handle("GET /v1/me/games", RequireAuth(verifier, http.HandlerFunc(handler.ListMyGames)))
}

func registerAuthorizedChatRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/games/{gameID}/messages", RequireAuth(verifier, http.HandlerFunc(handler.ListMessages)))
	mux.Handle("POST /v1/games/{gameID}/messages", RequireAuth(verifier, http.HandlerFunc(handler.PostMessage)))
}

func registerAuthorizedNotificationRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/me/notifications", RequireAuth(verifier, http.HandlerFunc(handler.ListMyNotifications)))
	mux.Handle("GET /v1/me/notifications/unread-count", RequireAuth(verifier, http.HandlerFunc(handler.GetUnreadCount)))
	mux.Handle("POST /v1/me/notifications/{notificationID}/read", RequireAuth(verifier, http.HandlerFunc(handler.MarkNotificationRead)))
}

func registerAuthorizedEventRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/events", RequireAuth(verifier, http.HandlerFunc(handler.StreamEvents)))
}
