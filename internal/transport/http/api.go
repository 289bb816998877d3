package http

import (
	"errors"
	"net/http"
	"strconv"

	"lingo-quiz-service/internal/app"
	"lingo-quiz-service/internal/domain"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "sid"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// API serves the JSON endpoints for content, accounts and progress.
type API struct {
	auth     *app.AuthService
	progress *app.ProgressService
	content  *app.ContentService
	cookie   CookieConfig
}

func NewAPI(auth *app.AuthService, progress *app.ProgressService, content *app.ContentService, cookie CookieConfig) *API {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	return &API{auth: auth, progress: progress, content: content, cookie: cookie}
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string            `json:"message"`
	User    domain.PublicUser `json:"user"`
}

type checkAuthResponse struct {
	Authenticated bool               `json:"authenticated"`
	User          *domain.PublicUser `json:"user,omitempty"`
}

type submitResponse struct {
	Message  string                 `json:"message"`
	Correct  bool                   `json:"correct"`
	Progress map[string]interface{} `json:"progress"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is running"})
}

func (a *API) randomChallenge(t domain.ChallengeType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := a.content.Random(r.Context(), t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := a.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	a.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{Message: "User registered successfully", User: user.Public()})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	a.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: user.Public()})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(r.Context(), a.sessionToken(r)); err != nil {
		writeError(w, err)
		return
	}
	a.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (a *API) checkAuth(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.CurrentUser(r.Context(), a.sessionToken(r))
	if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrUserNotFound) {
		writeJSON(w, http.StatusOK, checkAuthResponse{Authenticated: false})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	public := user.Public()
	writeJSON(w, http.StatusOK, checkAuthResponse{Authenticated: true, User: &public})
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.AttemptSubmission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, err)
		return
	}
	snap, err := a.progress.RecordAttempt(r.Context(), UserIDFrom(r.Context()), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message: "Challenge attempt recorded",
		Correct: snap.Correct,
		Progress: map[string]interface{}{
			"totalScore":               snap.TotalScore,
			"level":                    snap.Level,
			string(snap.ChallengeType): snap.Challenge,
		},
	})
}

func (a *API) getProgress(w http.ResponseWriter, r *http.Request) {
	report, err := a.progress.GetProgress(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	q := domain.HistoryQuery{Type: domain.ChallengeType(r.URL.Query().Get("type"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, domain.Invalid("limit", "must be a non-negative integer"))
			return
		}
		q.Limit = limit
	}
	attempts, err := a.progress.GetHistory(r.Context(), UserIDFrom(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []domain.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (a *API) weakAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := a.progress.GetWeakAreas(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if areas == nil {
		areas = []domain.WeakArea{}
	}
	writeJSON(w, http.StatusOK, areas)
}
