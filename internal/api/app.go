package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/sportbuddy/chat-server/internal/config"
	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/group"
	"github.com/sportbuddy/chat-server/internal/server"
)

// ThreadPurger removes a thread's uploaded media when a friendship ends.
type ThreadPurger interface {
	PurgeThread(ctx context.Context, threadId string) error
}

type ChatApp struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	cs             *server.ChatServer
	groups         *group.Service
	purger         ThreadPurger
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(logger *log.Logger, cs *server.ChatServer, groups *group.Service, db database.Repository, purger ThreadPurger, cfg *config.Config, statsMux *http.ServeMux) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		groups:         groups,
		purger:         purger,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux := statsMux
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.Handle("POST /api/threads", s.authMiddleware(s.createThread))
	mux.Handle("DELETE /api/threads", s.authMiddleware(s.deleteThread))
	mux.Handle("POST /api/direct/messages", s.authMiddleware(s.sendDirectMessage))
	mux.Handle("GET /api/direct/messages", s.authMiddleware(s.getDirectMessages))
	mux.Handle("POST /api/direct/read", s.authMiddleware(s.markDirectRead))

	mux.Handle("POST /api/groups", s.authMiddleware(s.createGroup))
	mux.Handle("DELETE /api/groups", s.authMiddleware(s.deleteGroup))
	mux.Handle("POST /api/groups/join", s.authMiddleware(s.joinGroup))
	mux.Handle("POST /api/groups/leave", s.authMiddleware(s.leaveGroup))
	mux.Handle("POST /api/groups/kick", s.authMiddleware(s.kickFromGroup))
	mux.Handle("POST /api/groups/admin", s.authMiddleware(s.setGroupAdmin))
	mux.Handle("POST /api/groups/invitations", s.authMiddleware(s.inviteToGroup))
	mux.Handle("POST /api/groups/invitations/reject", s.authMiddleware(s.rejectInvitation))
	mux.Handle("POST /api/group/messages", s.authMiddleware(s.sendGroupMessage))
	mux.Handle("GET /api/group/messages", s.authMiddleware(s.getGroupMessages))
	mux.Handle("POST /api/group/read", s.authMiddleware(s.markGroupRead))

	mux.Handle("PUT /api/push-token", s.authMiddleware(s.setPushToken))
	mux.Handle("DELETE /api/push-token", s.authMiddleware(s.clearPushToken))

	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

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
