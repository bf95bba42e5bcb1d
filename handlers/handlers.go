package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dotogether/models"
	"dotogether/session"
)

// Accounts is the slice of the account store the handlers need.
type Accounts interface {
	CreateUser(ctx context.Context, username, name, passwordHash, securityHash string) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, username, passwordHash string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Tasks is the slice of the task store the handlers need.
type Tasks interface {
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	TaskByID(ctx context.Context, id uuid.UUID) (models.Task, error)
	TasksForUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	TasksForList(ctx context.Context, listID uuid.UUID) ([]models.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	CreateList(ctx context.Context, ownerID uuid.UUID, name string) (models.List, error)
	ListByID(ctx context.Context, id uuid.UUID) (models.List, error)
	ListsForUser(ctx context.Context, userID uuid.UUID) ([]models.List, error)
	AddMember(ctx context.Context, listID, userID uuid.UUID) error
	Members(ctx context.Context, listID uuid.UUID) ([]models.ListMember, error)
	RemoveMember(ctx context.Context, listID, userID uuid.UUID) error
	IsMember(ctx context.Context, listID, userID uuid.UUID) (bool, error)
}

type Server struct {
	accounts Accounts
	tasks    Tasks
	sessions *session.Manager
	log      *log.Logger
}

func New(accounts Accounts, tasks Tasks, sessions *session.Manager, logger *log.Logger) *Server {
	return &Server{accounts: accounts, tasks: tasks, sessions: sessions, log: logger}
}

// Routes registers every endpoint on a fresh mux and wraps it with the
// no-cache middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.home)
	mux.HandleFunc("GET /auth", s.authPage)
	mux.HandleFunc("POST /auth", s.auth)
	mux.HandleFunc("GET /logout", s.logout)
	mux.HandleFunc("GET /profile", s.profilePage)
	mux.HandleFunc("POST /profile", s.updateProfile)
	mux.HandleFunc("POST /forgot", s.forgotPassword)

	mux.HandleFunc("GET /tasks", s.listTasks)
	mux.HandleFunc("POST /tasks", s.createTask)
	mux.HandleFunc("PATCH /tasks/{id}", s.updateTask)
	mux.HandleFunc("PUT /tasks/{id}", s.updateTask)
	mux.HandleFunc("DELETE /tasks/{id}", s.deleteTask)

	mux.HandleFunc("GET /lists", s.listLists)
	mux.HandleFunc("POST /lists", s.createList)
	mux.HandleFunc("GET /lists/{id}/members", s.listMembers)
	mux.HandleFunc("POST /lists/{id}/members", s.addMember)
	mux.HandleFunc("DELETE /lists/{id}/members/{userId}", s.removeMember)

	return noCache(mux)
}

// noCache disables client and proxy caching on every response.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// currentSession resolves the session cookie, sliding remembered sessions
// forward on every authenticated request.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	st, err := r.Cookie(session.CookieName)
	if err != nil || st.Value == "" {
		return models.Session{}, false
	}

	sess, err := s.sessions.Get(r.Context(), st.Value)
	if err != nil {
		return models.Session{}, false
	}

	if sess.Remember {
		if err := s.sessions.Touch(r.Context(), sess); err != nil {
			s.log.WithError(err).Warn("failed to slide session expiry")
		}
		s.setSessionCookie(w, sess.Token, session.RememberTTL)
	}

	return sess, true
}

// requireSession is currentSession plus the Unauthenticated response.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (models.Session, uuid.UUID, bool) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		s.respondErr(w, r, http.StatusUnauthorized, "Please log in.", "/auth")
		return models.Session{}, uuid.Nil, false
	}

	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		s.log.WithField("user_id", sess.UserID).Error("session carries malformed user id")
		s.respondErr(w, r, http.StatusUnauthorized, "Please log in.", "/auth")
		return models.Session{}, uuid.Nil, false
	}

	return sess, userID, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
