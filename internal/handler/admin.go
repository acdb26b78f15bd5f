package handler

import (
	"encoding/json"
	"net/http"
	"time"

	appI18n "github.com/pavelanni/contestor/internal/i18n"
	"github.com/pavelanni/contestor/internal/model"
)

type createContestRequest struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (h *Handler) handleCreateContest(w http.ResponseWriter, r *http.Request) {
	var req createContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.badRequest(w, r, "invalid_contest")
		return
	}
	if !req.StartTime.Before(req.EndTime) {
		h.badRequest(w, r, "invalid_contest_window")
		return
	}

	id, err := h.store.CreateContest(model.Contest{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	contest, err := h.store.GetContest(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contest)
}

func (h *Handler) handlePublishContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	if err := h.store.PublishContest(contestID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"published": true})
}

type setProblemsRequest struct {
	ProblemIDs []int64 `json:"problem_ids"`
}

func (h *Handler) handleSetContestProblems(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}
	var req setProblemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ProblemIDs) == 0 {
		h.badRequest(w, r, "invalid_problem_set")
		return
	}

	contest, err := h.store.GetContest(contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The problem set is frozen once the contest window opens.
	if !h.now().Before(contest.StartTime) {
		h.writeError(w, r, model.ErrContestNotActive)
		return
	}
	for _, pID := range req.ProblemIDs {
		if _, err := h.store.GetProblem(pID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	if err := h.store.SetContestProblems(contestID, req.ProblemIDs); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"problem_ids": req.ProblemIDs})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// handleToggleUserActive flips a user's active flag. Deactivated users fail
// both login and existing-session checks.
func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "userID")
	if err != nil {
		h.badRequest(w, r, "invalid_user_id")
		return
	}
	if err := h.store.ToggleUserActive(userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(userID)
	if err != nil || user == nil {
		h.writeError(w, r, model.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "active": user.Active})
}

type ratingChangeResponse struct {
	model.RatingChange
	TitleLabel string `json:"title_label"`
}

func (h *Handler) handleFinalizeRatings(w http.ResponseWriter, r *http.Request) {
	contestID, err := urlID(r, "contestID")
	if err != nil {
		h.badRequest(w, r, "invalid_contest_id")
		return
	}

	changes, err := h.engine.Finalize(contestID, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ratingChangeResponse, 0, len(changes))
	for _, ch := range changes {
		resp = append(resp, ratingChangeResponse{
			RatingChange: ch,
			TitleLabel:   appI18n.T(r.Context(), "title."+string(ch.NewTitle)),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
