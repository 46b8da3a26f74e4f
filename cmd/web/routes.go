package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/code-duels/internal/config"
	"github.com/AdamBeresnev/code-duels/internal/httputil"
	"github.com/AdamBeresnev/code-duels/internal/middleware"
	"github.com/AdamBeresnev/code-duels/internal/realtime"
	"github.com/AdamBeresnev/code-duels/internal/service"
	"github.com/AdamBeresnev/code-duels/views"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

type app struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	users          *service.UserService
	duels          *service.DuelService
	hub            *realtime.Hub
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "HX-Request"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Registered ahead of the session middleware, which wraps the response
	// writer in a way the websocket upgrade cannot hijack.
	r.Get("/ws/duels/{id}", a.watchDuel)

	r.Group(func(r chi.Router) {
		r.Use(a.sessionManager.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(a.sessionManager, a.users))
		a.sessionRoutes(r)
	})

	return r
}

func (a *app) sessionRoutes(r chi.Router) {
	// Serve static files
	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, r, views.LoginPage())
	})
	r.Get("/auth/{provider}", a.beginAuth)
	r.Get("/auth/{provider}/callback", a.completeAuth)
	r.Post("/auth/guest", a.guestLogin)
	r.Post("/logout", a.logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", a.lobby)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIAuth)

		r.Route("/duels", func(r chi.Router) {
			r.Post("/", a.createDuel)
			r.Get("/available", a.listAvailable)
			r.Get("/history", a.listHistory)
			r.Get("/{id}", a.getDuel)
			r.Get("/{id}/attempts", a.listAttempts)
			r.Post("/{id}/join", a.joinDuel)
			r.Post("/{id}/submit", a.submit)
		})

		r.With(middleware.RequireAdmin(a.cfg.AdminEmails)).Post("/admin/duels/cleanup", a.cleanup)
	})
}

func (a *app) beginAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

	gothic.BeginAuthHandler(w, r)
}

func (a *app) completeAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		httputil.BadRequest(w, "Authentication failure", err)
		return
	}

	user, err := a.users.FindOrCreateUserByProvider(r.Context(), gothUser)
	if err != nil {
		httputil.InternalServerError(w, "Failed to find or create user", err)
		return
	}

	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *app) guestLogin(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.EnsureGuestUser(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to login as guest", err)
		return
	}

	a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	a.sessionManager.Destroy(r.Context())
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (a *app) lobby(w http.ResponseWriter, r *http.Request) {
	user := views.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	available, err := a.duels.ListAvailableDuels(r.Context(), user.ID, 0)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list available duels", err)
		return
	}
	history, err := a.duels.ListDuelHistory(r.Context(), user.ID, 0)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list duel history", err)
		return
	}

	views.Render(w, r, views.LobbyPage(user, views.PrepareLobbyData(user.ID, available, history)))
}

type createDuelRequest struct {
	QuestionID uuid.UUID `json:"question_id"`
}

func (a *app) createDuel(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req createDuelRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	if req.QuestionID == uuid.Nil {
		httputil.BadRequest(w, "question_id is required", nil)
		return
	}

	d, err := a.duels.CreateDuel(r.Context(), req.QuestionID, userID)
	if err != nil {
		writeServiceError(w, "Failed to create duel", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (a *app) joinDuel(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	duelID, ok := duelIDParam(w, r)
	if !ok {
		return
	}

	d, err := a.duels.JoinDuel(r.Context(), duelID, userID)
	if err != nil {
		writeServiceError(w, "Failed to join duel", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (a *app) getDuel(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	duelID, ok := duelIDParam(w, r)
	if !ok {
		return
	}

	details, err := a.duels.GetDuel(r.Context(), duelID, userID)
	if err != nil {
		writeServiceError(w, "Failed to get duel", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func (a *app) listAttempts(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	duelID, ok := duelIDParam(w, r)
	if !ok {
		return
	}

	attempts, err := a.duels.ListAttempts(r.Context(), duelID, userID)
	if err != nil {
		writeServiceError(w, "Failed to list attempts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attempts)
}

type submitRequest struct {
	Code           string `json:"code"`
	Language       string `json:"language"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

func (a *app) submit(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	duelID, ok := duelIDParam(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	outcome, err := a.duels.Submit(r.Context(), service.Submission{
		DuelID:         duelID,
		UserID:         userID,
		Code:           req.Code,
		Language:       req.Language,
		ElapsedSeconds: req.ElapsedSeconds,
	})
	if err != nil {
		writeServiceError(w, "Failed to submit solution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

func (a *app) listAvailable(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	duels, err := a.duels.ListAvailableDuels(r.Context(), userID, limitParam(r))
	if err != nil {
		httputil.InternalServerError(w, "Failed to list available duels", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, duels)
}

func (a *app) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	duels, err := a.duels.ListDuelHistory(r.Context(), userID, limitParam(r))
	if err != nil {
		httputil.InternalServerError(w, "Failed to list duel history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, duels)
}

func (a *app) cleanup(w http.ResponseWriter, r *http.Request) {
	reaped, expired, err := a.duels.RunMaintenance(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to clean up duels", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"reaped": reaped, "expired": expired})
}

// watchDuel streams duel events to a participant over a websocket.
func (a *app) watchDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SessionUserID(a.sessionManager, r)
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	duelID, ok := duelIDParam(w, r)
	if !ok {
		return
	}

	if _, err := a.duels.GetDuel(r.Context(), duelID, userID); err != nil {
		writeServiceError(w, "Failed to watch duel", err)
		return
	}
	a.hub.Serve(w, r, duelID)
}

func duelIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid duel ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrDuelNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		httputil.NotFound(w, err.Error(), err)
	case errors.Is(err, service.ErrAccessDenied),
		errors.Is(err, service.ErrNotAParticipant),
		errors.Is(err, service.ErrCannotJoinOwnDuel):
		httputil.Forbidden(w, err.Error(), err)
	case errors.Is(err, service.ErrAlreadyInDuel),
		errors.Is(err, service.ErrDuelNotJoinable),
		errors.Is(err, service.ErrDuelNotActive):
		httputil.Conflict(w, err.Error(), err)
	case errors.Is(err, service.ErrUnsupportedQuestionType),
		errors.Is(err, service.ErrInvalidSubmission):
		httputil.BadRequest(w, err.Error(), err)
	case errors.Is(err, service.ErrExecutionFailed):
		httputil.BadGateway(w, service.ErrExecutionFailed.Error(), err)
	default:
		httputil.InternalServerError(w, msg, err)
	}
}
