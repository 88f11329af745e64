package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/service"
)

// Request payloads

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// FlashcardRequest defines the payload for creating or updating a flashcard.
type FlashcardRequest struct {
	Question string `json:"question" validate:"required,max=255"`
	Answer   string `json:"answer"   validate:"required,max=255"`
}

// RevertRequest defines the payload for reverting a flashcard to an audit
// record.
type RevertRequest struct {
	AuditID int64 `json:"audit_id" validate:"required"`
}

// Response payloads

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    string    `json:"expires_at,omitempty"`
}

// RefreshTokenResponse defines the successful response for the token refresh
// endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// FlashcardResponse is the public representation of a flashcard.
// The owner ID is deliberately absent: flashcards are only ever served to
// their owner.
type FlashcardResponse struct {
	ID        int64         `json:"id"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Status    domain.Status `json:"status"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewFlashcardResponse converts a domain flashcard to its API representation.
func NewFlashcardResponse(card *domain.Flashcard) FlashcardResponse {
	return FlashcardResponse{
		ID:        card.ID,
		Question:  card.Question,
		Answer:    card.Answer,
		Status:    card.Status,
		DeletedAt: card.DeletedAt,
		CreatedAt: card.CreatedAt,
		UpdatedAt: card.UpdatedAt,
	}
}

// FlashcardMessageResponse pairs a message with the affected flashcard.
type FlashcardMessageResponse struct {
	Message   string            `json:"message"`
	Flashcard FlashcardResponse `json:"flashcard"`
}

// StatisticsResponse reports a user's aggregate practice progress.
type StatisticsResponse struct {
	TotalFlashcards    int64   `json:"total_flashcards"`
	AnsweredPercentage float64 `json:"answered_percentage"`
	CorrectPercentage  float64 `json:"correct_percentage"`
}

// HistoryEntryResponse is one audit record rendered as a merged snapshot.
type HistoryEntryResponse struct {
	AuditID   int64     `json:"audit_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Status    string    `json:"status"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the full audit history of one flashcard, most recent
// first.
type HistoryResponse struct {
	FlashcardID int64                  `json:"flashcard_id"`
	History     []HistoryEntryResponse `json:"history"`
}

// NewHistoryResponse converts service history entries to their API
// representation.
func NewHistoryResponse(flashcardID int64, entries []service.HistoryEntry) HistoryResponse {
	out := HistoryResponse{
		FlashcardID: flashcardID,
		History:     make([]HistoryEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		out.History = append(out.History, HistoryEntryResponse{
			AuditID:   e.AuditID,
			Question:  e.Snapshot.Question,
			Answer:    e.Snapshot.Answer,
			Status:    string(e.Snapshot.Status),
			Deleted:   e.Snapshot.Trashed(),
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
