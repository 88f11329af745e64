package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cardlog/cardlog/internal/api/shared"
	"github.com/cardlog/cardlog/internal/service"
)

// FlashcardHandler handles flashcard-related API requests.
type FlashcardHandler struct {
	service service.FlashcardService
	logger  *slog.Logger
}

// NewFlashcardHandler creates a new FlashcardHandler with the given
// dependencies.
func NewFlashcardHandler(svc service.FlashcardService, logger *slog.Logger) *FlashcardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashcardHandler{
		service: svc,
		logger:  logger.With(slog.String("component", "flashcard_handler")),
	}
}

// List handles GET /flashcards.
// Soft-deleted flashcards are included so the client can offer restore.
func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	cards, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]FlashcardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, NewFlashcardResponse(card))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Create handles POST /flashcards.
func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	var req FlashcardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.Validator.Struct(req); err != nil {
		RespondWithValidationError(w, r, err)
		return
	}

	card, err := h.service.Create(r.Context(), userID, req.Question, req.Answer)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewFlashcardResponse(card))
}

// Show handles GET /flashcards/{id}.
func (h *FlashcardHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := h.flashcardID(w, r)
	if !ok {
		return
	}

	card, err := h.service.Find(r.Context(), userID, id, false)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewFlashcardResponse(card))
}

// Update handles PATCH /flashcards/{id}.
func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := h.flashcardID(w, r)
	if !ok {
		return
	}

	var req FlashcardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.Validator.Struct(req); err != nil {
		RespondWithValidationError(w, r, err)
		return
	}

	card, err := h.service.Edit(r.Context(), userID, id, req.Question, req.Answer)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewFlashcardResponse(card))
}

// Delete handles DELETE /flashcards/{id}: soft-delete for an active
// flashcard, permanent delete for one that is already soft-deleted.
func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := h.flashcardID(w, r)
	if !ok {
		return
	}

	card, err := h.service.Find(r.Context(), userID, id, true)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if card.Trashed() {
		if err := h.service.PermanentlyDelete(r.Context(), userID, id); err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
			Message: "Flashcard deleted permanently",
		})
		return
	}

	if err := h.service.SoftDelete(r.Context(), userID, id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: "Flashcard deleted successfully",
	})
}

// Restore handles POST /flashcards/{id}/restore.
func (h *FlashcardHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := h.flashcardID(w, r)
	if !ok {
		return
	}

	card, err := h.service.Restore(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FlashcardMessageResponse{
		Message:   "Flashcard restored successfully",
		Flashcard: NewFlashcardResponse(card),
	})
}

// History handles GET /flashcards/{id}/history.
func (h *FlashcardHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := h.flashcardID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(r.Context(), userID, id, false)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewHistoryResponse(id, entries))
}

// Revert handles POST /flashcards/{id}/history: it writes the named audit
// record's field payload back to the flashcard.
func (h *FlashcardHandler) Revert(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := h.flashcardID(w, r)
	if !ok {
		return
	}

	var req RevertRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondWithFieldError(w, r, "audit_id", IntegerFieldMessage("audit_id"))
		return
	}
	if err := shared.Validator.Struct(req); err != nil {
		RespondWithValidationError(w, r, err)
		return
	}

	card, err := h.service.RevertToAudit(r.Context(), userID, id, req.AuditID, false)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FlashcardMessageResponse{
		Message: fmt.Sprintf(
			"Flashcard #%d reverted to state #%d successfully.", id, req.AuditID),
		Flashcard: NewFlashcardResponse(card),
	})
}

// Statistics handles GET /flashcards/statistics.
func (h *FlashcardHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatisticsResponse{
		TotalFlashcards:    stats.Total,
		AnsweredPercentage: stats.PercentAnswered,
		CorrectPercentage:  stats.PercentCorrect,
	})
}

// ResetProgress handles POST /flashcards/reset.
func (h *FlashcardHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.ResetProgress(r.Context(), userID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: "Flashcard progress reset successfully",
	})
}

// currentUserID extracts the authenticated user's ID from the request
// context. Writes a 401 response and returns false when absent, which only
// happens if the auth middleware was not applied.
func (h *FlashcardHandler) currentUserID(
	w http.ResponseWriter,
	r *http.Request,
) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok {
		h.logger.Error("user ID missing from authenticated request",
			slog.String("path", r.URL.Path))
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

// flashcardID parses the {id} path parameter. A non-integer value gets a 422
// with the same wording as body validation failures.
func (h *FlashcardHandler) flashcardID(
	w http.ResponseWriter,
	r *http.Request,
) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		RespondWithFieldError(w, r, "id", IntegerFieldMessage("id"))
		return 0, false
	}
	return id, true
}

func (h *FlashcardHandler) respondServiceError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	shared.RespondWithErrorAndLog(w, r,
		MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
