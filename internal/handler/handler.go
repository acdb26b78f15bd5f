package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/contestor/internal/i18n"
	"github.com/pavelanni/contestor/internal/model"
	"github.com/pavelanni/contestor/internal/rating"
	"github.com/pavelanni/contestor/internal/scoring"
	"github.com/pavelanni/contestor/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	engine *rating.Engine
	config model.ServerConfig
	now    func() time.Time
}

// New creates a new Handler.
func New(s *store.Store, e *rating.Engine, cfg model.ServerConfig) (*Handler, error) {
	return &Handler{store: s, engine: e, config: cfg, now: time.Now}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/logout", h.handleLogout)
		r.Get("/contests", h.handleListContests)
		r.Get("/contests/{contestID}", h.handleGetContest)
		r.Post("/contests/{contestID}/join", h.handleJoinContest)
		r.Post("/contests/{contestID}/draft", h.handleSubmitDraft)
		r.Post("/contests/{contestID}/final", h.handleSubmitFinal)
		r.Get("/contests/{contestID}/standings", h.handleStandings)
		r.Get("/users/{userID}/rating-history", h.handleRatingHistory)
		r.Post("/practice", h.handleSubmitPractice)
		r.Get("/practice/next", h.handlePracticeNext)

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(model.UserRoleAdmin))
			r.Post("/contests", h.handleCreateContest)
			r.Post("/contests/{contestID}/publish", h.handlePublishContest)
			r.Post("/contests/{contestID}/problems", h.handleSetContestProblems)
			r.Post("/contests/{contestID}/ratings", h.handleFinalizeRatings)
			r.Get("/users", h.handleListUsers)
			r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// errorBody is the JSON error envelope: a stable machine-readable code plus
// a localized message.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorCodes = map[error]struct {
	status int
	code   string
}{
	model.ErrContestNotFound:          {http.StatusNotFound, "contest_not_found"},
	model.ErrProblemNotFound:          {http.StatusNotFound, "problem_not_found"},
	model.ErrUserNotFound:             {http.StatusNotFound, "user_not_found"},
	model.ErrContestNotActive:         {http.StatusConflict, "contest_not_active"},
	model.ErrContestNotEnded:          {http.StatusConflict, "contest_not_ended"},
	model.ErrProblemNotInContest:      {http.StatusConflict, "problem_not_in_contest"},
	model.ErrNotParticipant:           {http.StatusForbidden, "not_participant"},
	model.ErrDuplicateFinalSubmission: {http.StatusConflict, "duplicate_final_submission"},
	model.ErrRatingsFinalized:         {http.StatusConflict, "ratings_finalized"},
	model.ErrNoParticipants:           {http.StatusUnprocessableEntity, "no_participants"},
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for sentinel, info := range errorCodes {
		if errors.Is(err, sentinel) {
			writeJSON(w, info.status, errorBody{
				Code:    info.code,
				Message: appI18n.T(r.Context(), "error."+info.code),
			})
			return
		}
	}
	slog.Error("internal error", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Code:    "internal",
		Message: appI18n.T(r.Context(), "error.internal"),
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, code string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Code:    code,
		Message: appI18n.T(r.Context(), "error."+code),
	})
}

func urlID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) handleListContests(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	publishedOnly := user == nil || user.Role != model.UserRoleAdmin
	contests, err := h.store.ListContests(publishedOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contests)
}

type contestResponse struct {
	model.Contest
	State      model.ContestState `json:"state"`
	ProblemIDs []int64            `json:"problem_ids"`
}

func (h *Handler) handleGetContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	contest, err := h.store.GetContest(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	if !contest.IsPublished && (user == nil || user.Role != model.UserRoleAdmin) {
		h.writeError(w, r, model.ErrContestNotFound)
		return
	}
	problemIDs, err := h.store.ContestProblemIDs(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contestResponse{
		Contest:    contest,
		State:      contest.StateAt(h.now()),
		ProblemIDs: problemIDs,
	})
}

func (h *Handler) handleJoinContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	user := model.UserFromContext(r.Context())
	contest, err := h.store.GetContest(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	now := h.now()
	if !contest.IsPublished || !now.Before(contest.EndTime) {
		h.writeError(w, r, model.ErrContestNotActive)
		return
	}
	if err := h.store.JoinContest(contestID, user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"joined": true})
}

type answerRequest struct {
	ProblemID       int64    `json:"problem_id"`
	SelectedOptions []string `json:"selected_options"`
}

type verdictResponse struct {
	Verdict      model.Verdict `json:"verdict"`
	VerdictLabel string        `json:"verdict_label"`
	Score        int           `json:"score"`
}

// requireParticipant rejects submissions from users who never joined the
// contest.
func (h *Handler) requireParticipant(contestID, userID int64) error {
	ok, err := h.store.IsParticipant(contestID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotParticipant
	}
	return nil
}

// gradeContestAnswer validates an answer against the contest problem set and
// grades it. The verdict is never taken from the caller.
func (h *Handler) gradeContestAnswer(contestID int64, req answerRequest) (model.Submission, error) {
	ok, err := h.store.ContestHasProblem(contestID, req.ProblemID)
	if err != nil {
		return model.Submission{}, err
	}
	if !ok {
		return model.Submission{}, model.ErrProblemNotInContest
	}
	problem, err := h.store.GetProblem(req.ProblemID)
	if err != nil {
		return model.Submission{}, err
	}
	verdict, score := scoring.Grade(problem, req.SelectedOptions)
	return model.Submission{
		ProblemID:       req.ProblemID,
		ContestID:       &contestID,
		SelectedOptions: req.SelectedOptions,
		Verdict:         verdict,
		Score:           score,
	}, nil
}

func (h *Handler) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.SelectedOptions) == 0 {
		h.badRequest(w, r, "invalid_answer")
		return
	}

	user := model.UserFromContext(r.Context())
	contest, err := h.store.GetContest(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	now := h.now()
	if contest.StateAt(now) != model.ContestActive {
		h.writeError(w, r, model.ErrContestNotActive)
		return
	}
	if err := h.requireParticipant(contestID, user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.gradeContestAnswer(contestID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub.UserID = user.ID
	sub.SubmittedAt = now
	if err := h.store.SaveDraft(sub); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{
		Verdict:      sub.Verdict,
		VerdictLabel: appI18n.T(r.Context(), "verdict."+string(sub.Verdict)),
		Score:        sub.Score,
	})
}

type finalBatchRequest struct {
	Answers []answerRequest `json:"answers"`
}

func (h *Handler) handleSubmitFinal(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	var req finalBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Answers) == 0 {
		h.badRequest(w, r, "invalid_answer")
		return
	}
	for _, a := range req.Answers {
		if len(a.SelectedOptions) == 0 {
			h.badRequest(w, r, "invalid_answer")
			return
		}
	}

	user := model.UserFromContext(r.Context())
	contest, err := h.store.GetContest(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Finalization is accepted through the window and at exactly the
	// deadline, which is when the auto-submit fires. The contest must be
	// published and running, same lifecycle rule as drafts.
	now := h.now()
	if !contest.IsPublished || now.Before(contest.StartTime) || now.After(contest.EndTime) {
		h.writeError(w, r, model.ErrContestNotActive)
		return
	}
	if err := h.requireParticipant(contestID, user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	subs := make([]model.Submission, 0, len(req.Answers))
	verdicts := make(map[int64]verdictResponse, len(req.Answers))
	for _, a := range req.Answers {
		sub, err := h.gradeContestAnswer(contestID, a)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		sub.UserID = user.ID
		sub.SubmittedAt = now
		sub.IsFinal = true
		subs = append(subs, sub)
		verdicts[sub.ProblemID] = verdictResponse{
			Verdict:      sub.Verdict,
			VerdictLabel: appI18n.T(r.Context(), "verdict."+string(sub.Verdict)),
			Score:        sub.Score,
		}
	}

	if err := h.store.FinalizeBatch(user.ID, contestID, subs); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"final": true, "verdicts": verdicts})
}

func (h *Handler) handleStandings(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	contest, err := h.store.GetContest(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	if !contest.IsPublished && (user == nil || user.Role != model.UserRoleAdmin) {
		h.writeError(w, r, model.ErrContestNotFound)
		return
	}

	// Live standings during the contest reflect drafts; once the window
	// closes only final submissions count.
	finalOnly := !h.now().Before(contest.EndTime)
	subs, err := h.store.ListContestSubmissions(contestID, finalOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows := scoring.Standings(subs)
	if rows == nil {
		rows = []model.StandingsRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleRatingHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "userID")
	if err != nil {
		h.badRequest(w, r, "invalid_user_id")
		return
	}
	entries, err := h.store.ListRatingHistory(userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.RatingHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type practiceResponse struct {
	verdictResponse
	CorrectOptions []string `json:"correct_options"`
}

func (h *Handler) handleSubmitPractice(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.SelectedOptions) == 0 {
		h.badRequest(w, r, "invalid_answer")
		return
	}

	user := model.UserFromContext(r.Context())
	problem, err := h.store.GetProblem(req.ProblemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	verdict, score := scoring.Grade(problem, req.SelectedOptions)
	_, err = h.store.InsertPractice(model.Submission{
		UserID:          user.ID,
		ProblemID:       req.ProblemID,
		SelectedOptions: req.SelectedOptions,
		Verdict:         verdict,
		Score:           score,
		SubmittedAt:     h.now(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, practiceResponse{
		verdictResponse: verdictResponse{
			Verdict:      verdict,
			VerdictLabel: appI18n.T(r.Context(), "verdict."+string(verdict)),
			Score:        score,
		},
		CorrectOptions: problem.CorrectOptions,
	})
}

func (h *Handler) handlePracticeNext(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	problem, err := h.store.RandomUnsolvedProblem(user.ID, r.URL.Query().Get("subject"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, problem)
}
