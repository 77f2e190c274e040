package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tgienger/planx/internal/auth"
	"github.com/tgienger/planx/internal/config"
	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/mail"
	"github.com/tgienger/planx/internal/media"
)

const mailTimeout = 30 * time.Second

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	DB     *db.DB
	Auth   *auth.Manager
	Mail   mail.Sender
	Media  *media.Pipeline
	Logger *slog.Logger

	Server         config.ServerConfig
	OTPTTL         time.Duration
	MaxUploadBytes int64
	// FilesDir, when set, is served at /files
	FilesDir string
}

// Server holds the handlers of the REST API
type Server struct {
	Deps
	now func() time.Time
	// mail sent after the response is written
	pending sync.WaitGroup
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.OTPTTL <= 0 {
		deps.OTPTTL = 10 * time.Minute
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 100 << 20
	}
	return &Server{Deps: deps, now: time.Now}
}

// Wait blocks until mail queued by handlers has been handed to the sender
func (s *Server) Wait() {
	s.pending.Wait()
}

// Router builds the route tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("API STARTED!!!"))
	})
	r.Get("/health", s.health)

	if s.FilesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", noListing(http.FileServer(http.Dir(s.FilesDir)))))
	}

	authed := s.Auth.Middleware(unauthorized)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.register)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Put("/changePassword", s.changePassword)

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/", s.listUsers)
			r.Get("/me", s.me)
			r.Get("/{id}", s.getUser)
			r.Put("/{id}", s.updateUser)
			r.Delete("/{id}", s.deleteUser)
		})
	})

	r.Route("/sendMail", func(r chi.Router) {
		r.Post("/sendOtp", s.sendOTP)
		r.Post("/verifyOtp", s.verifyOTP)
		r.With(authed).Post("/", s.sendMail)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", s.createTask)
		r.Get("/", s.listTasks)
		r.Get("/deleted", s.listDeletedTasks)
		r.Get("/assigned/{userId}", s.listAssignedTasks)
		r.Get("/{id}", s.getTask)
		r.Put("/{id}", s.updateTask)
		r.Delete("/{id}", s.softDeleteTask)
		r.Put("/{id}/restore", s.restoreTask)
		r.Delete("/{id}/permanent", s.deleteTask)
		r.Put("/{id}/sendToQA", s.sendTaskToQA)
		r.Delete("/{id}/tags/{tagId}", s.removeTaskTag)
	})

	r.Route("/sections", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", s.createSection)
		r.Get("/", s.listSections)
		r.Get("/{id}", s.getSection)
		r.Put("/{id}", s.updateSection)
		r.Delete("/{id}", s.deleteSection)
	})

	r.Route("/tags", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", s.createTag)
		r.Get("/", s.listTags)
		r.Get("/{id}", s.getTag)
		r.Put("/{id}", s.updateTag)
		r.Delete("/{id}", s.deleteTag)
	})

	r.Route("/comment", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", s.listComments)
		r.Get("/{id}", s.getComment)
		r.Get("/task/{taskId}", s.listTaskComments)
		r.Post("/", s.createComment)
		r.Post("/addMedia", s.addMediaComment)
		r.Put("/{id}", s.updateComment)
		r.Delete("/{id}", s.deleteComment)
	})

	r.Route("/media", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", s.listMedia)
		r.Get("/{id}", s.getMedia)
		r.Post("/", s.uploadMedia)
		r.Delete("/{id}", s.deleteMedia)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", s.createNotifications)
		r.Get("/user/{userId}", s.listNotifications)
		r.Get("/user/{userId}/unreadCount", s.unreadCount)
		r.Put("/user/{userId}/readAll", s.markAllRead)
		r.Put("/{id}/read", s.markRead)
		r.Delete("/{id}", s.deleteNotification)
	})

	r.Route("/build", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", s.createBuild)
		r.Get("/", s.listBuilds)
		r.Get("/{id}", s.getBuild)
		r.Delete("/{id}", s.deleteBuild)
		r.Post("/addLink/android/{buildId}", s.addAndroidLink)
		r.Put("/addComment/{buildId}", s.addBuildComment)
		r.Get("/getComments/{buildId}", s.listBuildComments)
	})

	r.Route("/tasksChecked", func(r chi.Router) {
		r.Use(authed)
		r.Post("/markWorking", s.markWorking(true))
		r.Post("/markNotWorking", s.markWorking(false))
		r.Post("/isWorking", s.isWorking)
		r.Get("/build/{buildId}", s.listBuildChecks)
		r.Post("/uncheck", s.uncheck)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		s.Logger.ErrorContext(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": s.DB.Driver()})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusUnauthorized, "Unauthorized")
}

// noListing hides directory indexes of the file server
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sendLater hands msg to the mail sender without holding up the response
func (s *Server) sendLater(msg mail.Message, buildErr error) {
	if buildErr != nil {
		s.Logger.Error("failed to build mail", "to", msg.To, "error", buildErr)
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.Mail.Send(ctx, msg); err != nil {
			s.Logger.Error("failed to send mail", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}()
}
