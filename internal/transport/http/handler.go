package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"eduquiz-service/internal/app"
	"eduquiz-service/internal/domain"
)

// Handler exposes the quiz use cases over REST.
type Handler struct {
	service *app.QuizService
	log     *logrus.Logger
}

func NewHandler(service *app.QuizService, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes builds the service router.
func Routes(h *Handler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Post("/start", h.StartQuiz)
		r.Post("/submit", h.SubmitQuiz)
		r.Get("/points", h.Points)
	})
	r.Get("/leaderboard/{categoryID}", h.Leaderboard)
	if ws != nil {
		r.Get("/ws/leaderboard", ws.ServeWS)
	}
	return r
}

type startQuizRequest struct {
	UserID     string `json:"userId"`
	CategoryID string `json:"categoryId"`
}

type submitQuizRequest struct {
	UserID     string                   `json:"userId"`
	CategoryID string                   `json:"categoryId"`
	Answers    []domain.SubmittedAnswer `json:"answers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" || req.CategoryID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId and categoryId are required"})
		return
	}

	selection, err := h.service.StartQuiz(r.Context(), req.UserID, req.CategoryID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selection)
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" || req.CategoryID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId and categoryId are required"})
		return
	}
	if len(req.Answers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answers are required"})
		return
	}

	results, err := h.service.SubmitQuiz(r.Context(), req.UserID, req.CategoryID, req.Answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	categoryID := r.URL.Query().Get("categoryId")
	if userID == "" || categoryID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId and categoryId are required"})
		return
	}

	record, err := h.service.Points(r.Context(), userID, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrPointsNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no points recorded"})
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")
	if categoryID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "category id required"})
		return
	}

	board, err := h.service.Leaderboard(r.Context(), categoryID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// writeError keeps the not-available signal distinct from store failures:
// the former is an empty-content 404, the latter a logged 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrQuizNotAvailable) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "quiz not available"})
		return
	}
	h.log.WithField("path", r.URL.Path).WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to complete request"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
