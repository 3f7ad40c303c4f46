package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/commhub/chatserver/internal/chat"
	"github.com/commhub/chatserver/internal/config"
	"github.com/commhub/chatserver/internal/database"
	"github.com/commhub/chatserver/internal/gateway"
	"github.com/commhub/chatserver/internal/stats"
)

type ChatApp struct {
	log            *log.Logger
	db             database.Repository
	chat           *chat.Service
	gw             *gateway.Gateway
	stats          stats.StatsProvider
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(logger *log.Logger, gw *gateway.Gateway, chatService *chat.Service, db database.Repository, statsProvider stats.StatsProvider, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		chat:           chatService,
		gw:             gw,
		stats:          statsProvider,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.HandleFunc("GET /api/hub/messages", s.authMiddleware(s.getHubMessages))
	mux.HandleFunc("GET /api/hub/messages/{id}", s.authMiddleware(s.getHubMessage))
	mux.HandleFunc("POST /api/hub/messages", s.authMiddleware(s.createHubMessage))
	mux.HandleFunc("PUT /api/hub/messages/{id}", s.authMiddleware(s.updateHubMessage))
	mux.HandleFunc("DELETE /api/hub/messages/{id}", s.authMiddleware(s.deleteHubMessage))

	mux.HandleFunc("GET /api/messages", s.authMiddleware(s.getDirectMessages))
	mux.HandleFunc("GET /api/messages/{id}", s.authMiddleware(s.getDirectMessage))
	mux.HandleFunc("POST /api/messages", s.authMiddleware(s.sendDirectMessage))
	mux.HandleFunc("PUT /api/messages/{id}", s.authMiddleware(s.updateDirectMessage))
	mux.HandleFunc("DELETE /api/messages/{id}", s.authMiddleware(s.deleteDirectMessage))
	mux.HandleFunc("POST /api/messages/read", s.authMiddleware(s.markConversationRead))
	mux.HandleFunc("GET /api/messages/unread", s.authMiddleware(s.getUnreadMessageCounts))
	mux.HandleFunc("GET /api/conversations", s.authMiddleware(s.getRecentConversations))

	mux.HandleFunc("GET /api/notifications", s.authMiddleware(s.getNotifications))
	mux.HandleFunc("POST /api/notifications", s.authMiddleware(s.createNotification))
	mux.HandleFunc("GET /api/notifications/unread", s.authMiddleware(s.getUnreadNotificationCount))
	mux.HandleFunc("PUT /api/notifications/read-all", s.authMiddleware(s.markAllNotificationsRead))
	mux.HandleFunc("PUT /api/notifications/{id}/read", s.authMiddleware(s.markNotificationRead))
	mux.HandleFunc("DELETE /api/notifications/{id}", s.authMiddleware(s.deleteNotification))

	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
