package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlog/cardlog/internal/api/shared"
	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/domain/history"
	"github.com/cardlog/cardlog/internal/service"
	"github.com/cardlog/cardlog/internal/store"
)

func snapshotOf(question, answer string, status domain.Status) history.Snapshot {
	return history.Snapshot{Question: question, Answer: answer, Status: status}
}

// stubFlashcardService implements service.FlashcardService with overridable
// function fields.
type stubFlashcardService struct {
	createFn    func(ctx context.Context, ownerID uuid.UUID, question, answer string) (*domain.Flashcard, error)
	listFn      func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Flashcard, error)
	findFn      func(ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool) (*domain.Flashcard, error)
	editFn      func(ctx context.Context, ownerID uuid.UUID, id int64, question, answer string) (*domain.Flashcard, error)
	softDelFn   func(ctx context.Context, ownerID uuid.UUID, id int64) error
	restoreFn   func(ctx context.Context, ownerID uuid.UUID, id int64) (*domain.Flashcard, error)
	permDelFn   func(ctx context.Context, ownerID uuid.UUID, id int64) error
	practiceFn  func(ctx context.Context, ownerID uuid.UUID, id int64, answer string) (*service.PracticeResult, error)
	statsFn     func(ctx context.Context, ownerID uuid.UUID) (service.Statistics, error)
	resetFn     func(ctx context.Context, ownerID uuid.UUID) (int64, error)
	historyFn   func(ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool) ([]service.HistoryEntry, error)
	revertFn    func(ctx context.Context, ownerID uuid.UUID, id, auditID int64, includeDeleted bool) (*domain.Flashcard, error)
}

var _ service.FlashcardService = (*stubFlashcardService)(nil)

func (s *stubFlashcardService) Create(
	ctx context.Context, ownerID uuid.UUID, question, answer string,
) (*domain.Flashcard, error) {
	return s.createFn(ctx, ownerID, question, answer)
}

func (s *stubFlashcardService) List(
	ctx context.Context, ownerID uuid.UUID,
) ([]*domain.Flashcard, error) {
	return s.listFn(ctx, ownerID)
}

func (s *stubFlashcardService) Find(
	ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool,
) (*domain.Flashcard, error) {
	return s.findFn(ctx, ownerID, id, includeDeleted)
}

func (s *stubFlashcardService) Edit(
	ctx context.Context, ownerID uuid.UUID, id int64, question, answer string,
) (*domain.Flashcard, error) {
	return s.editFn(ctx, ownerID, id, question, answer)
}

func (s *stubFlashcardService) SoftDelete(
	ctx context.Context, ownerID uuid.UUID, id int64,
) error {
	return s.softDelFn(ctx, ownerID, id)
}

func (s *stubFlashcardService) Restore(
	ctx context.Context, ownerID uuid.UUID, id int64,
) (*domain.Flashcard, error) {
	return s.restoreFn(ctx, ownerID, id)
}

func (s *stubFlashcardService) PermanentlyDelete(
	ctx context.Context, ownerID uuid.UUID, id int64,
) error {
	return s.permDelFn(ctx, ownerID, id)
}

func (s *stubFlashcardService) Practice(
	ctx context.Context, ownerID uuid.UUID, id int64, answer string,
) (*service.PracticeResult, error) {
	return s.practiceFn(ctx, ownerID, id, answer)
}

func (s *stubFlashcardService) Statistics(
	ctx context.Context, ownerID uuid.UUID,
) (service.Statistics, error) {
	return s.statsFn(ctx, ownerID)
}

func (s *stubFlashcardService) ResetProgress(
	ctx context.Context, ownerID uuid.UUID,
) (int64, error) {
	return s.resetFn(ctx, ownerID)
}

func (s *stubFlashcardService) History(
	ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool,
) ([]service.HistoryEntry, error) {
	return s.historyFn(ctx, ownerID, id, includeDeleted)
}

func (s *stubFlashcardService) RevertToAudit(
	ctx context.Context, ownerID uuid.UUID, id, auditID int64, includeDeleted bool,
) (*domain.Flashcard, error) {
	return s.revertFn(ctx, ownerID, id, auditID, includeDeleted)
}

func testRouter(svc service.FlashcardService, userID uuid.UUID) http.Handler {
	h := NewFlashcardHandler(svc, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/flashcards", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/statistics", h.Statistics)
		r.Post("/reset", h.ResetProgress)
		r.Get("/{id}", h.Show)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/restore", h.Restore)
		r.Get("/{id}/history", h.History)
		r.Post("/{id}/history", h.Revert)
	})
	return r
}

func sampleCard(owner uuid.UUID) *domain.Flashcard {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Flashcard{
		ID:        1,
		UserID:    owner,
		Question:  "Q",
		Answer:    "A",
		Status:    domain.StatusNotAnswered,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func doJSON(
	t *testing.T,
	router http.Handler,
	method, path, body string,
) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeValidation(t *testing.T, rec *httptest.ResponseRecorder) ValidationErrorResponse {
	t.Helper()
	var resp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateFlashcardHandler(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		createFn: func(_ context.Context, _ uuid.UUID, q, a string) (*domain.Flashcard, error) {
			card := sampleCard(owner)
			card.Question = q
			card.Answer = a
			return card, nil
		},
	}
	router := testRouter(svc, owner)

	rec := doJSON(t, router, http.MethodPost, "/api/flashcards",
		`{"question":"What is Go?","answer":"A language"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp FlashcardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "What is Go?", resp.Question)
	assert.Equal(t, domain.StatusNotAnswered, resp.Status)
}

func TestCreateFlashcardValidationMessages(t *testing.T) {
	owner := uuid.New()
	router := testRouter(&stubFlashcardService{}, owner)

	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing question",
			body:      `{"answer":"A"}`,
			wantField: "question",
			wantMsg:   "The question field is required.",
		},
		{
			name:      "missing answer",
			body:      `{"question":"Q"}`,
			wantField: "answer",
			wantMsg:   "The answer field is required.",
		},
		{
			name:      "answer too long",
			body:      `{"question":"Q","answer":"` + strings.Repeat("a", 256) + `"}`,
			wantField: "answer",
			wantMsg:   "The answer field must not be greater than 255 characters.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/flashcards", tc.body)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			resp := decodeValidation(t, rec)
			require.Contains(t, resp.Errors, tc.wantField)
			assert.Contains(t, resp.Errors[tc.wantField], tc.wantMsg)
		})
	}
}

func TestShowFlashcardNotFound(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		findFn: func(context.Context, uuid.UUID, int64, bool) (*domain.Flashcard, error) {
			return nil, store.ErrFlashcardNotFound
		},
	}
	router := testRouter(svc, owner)

	rec := doJSON(t, router, http.MethodGet, "/api/flashcards/42", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Flashcard not found", resp.Error)
}

func TestNonIntegerIDRejected(t *testing.T) {
	owner := uuid.New()
	router := testRouter(&stubFlashcardService{}, owner)

	rec := doJSON(t, router, http.MethodGet, "/api/flashcards/abc", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeValidation(t, rec)
	assert.Equal(t, "The id field must be an integer.", resp.Message)
	assert.Contains(t, resp.Errors["id"], "The id field must be an integer.")
}

func TestDeleteSoftThenPermanent(t *testing.T) {
	owner := uuid.New()
	deletedAt := time.Now().UTC()

	t.Run("active flashcard is soft-deleted", func(t *testing.T) {
		svc := &stubFlashcardService{
			findFn: func(context.Context, uuid.UUID, int64, bool) (*domain.Flashcard, error) {
				return sampleCard(owner), nil
			},
			softDelFn: func(context.Context, uuid.UUID, int64) error { return nil },
		}
		rec := doJSON(t, testRouter(svc, owner), http.MethodDelete, "/api/flashcards/1", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp MessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Flashcard deleted successfully", resp.Message)
	})

	t.Run("trashed flashcard is deleted permanently", func(t *testing.T) {
		svc := &stubFlashcardService{
			findFn: func(context.Context, uuid.UUID, int64, bool) (*domain.Flashcard, error) {
				card := sampleCard(owner)
				card.DeletedAt = &deletedAt
				return card, nil
			},
			permDelFn: func(context.Context, uuid.UUID, int64) error { return nil },
		}
		rec := doJSON(t, testRouter(svc, owner), http.MethodDelete, "/api/flashcards/1", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp MessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Flashcard deleted permanently", resp.Message)
	})
}

func TestRestoreNotDeleted(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		restoreFn: func(context.Context, uuid.UUID, int64) (*domain.Flashcard, error) {
			return nil, service.ErrNotDeleted
		},
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodPost, "/api/flashcards/1/restore", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Flashcard is not deleted", resp.Error)
}

func TestRevertSuccessMessage(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		revertFn: func(_ context.Context, _ uuid.UUID, id, auditID int64, _ bool) (*domain.Flashcard, error) {
			return sampleCard(owner), nil
		},
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodPost,
		"/api/flashcards/7/history", `{"audit_id":3}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp FlashcardMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Flashcard #7 reverted to state #3 successfully.", resp.Message)
}

func TestRevertMissingAuditID(t *testing.T) {
	owner := uuid.New()
	rec := doJSON(t, testRouter(&stubFlashcardService{}, owner), http.MethodPost,
		"/api/flashcards/7/history", `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeValidation(t, rec)
	assert.Contains(t, resp.Errors["audit_id"], "The audit id field is required.")
}

func TestRevertAuditNotFound(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		revertFn: func(context.Context, uuid.UUID, int64, int64, bool) (*domain.Flashcard, error) {
			return nil, store.ErrAuditNotFound
		},
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodPost,
		"/api/flashcards/7/history", `{"audit_id":999}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Audit record not found", resp.Error)
}

func TestStatisticsHandler(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		statsFn: func(context.Context, uuid.UUID) (service.Statistics, error) {
			return service.Statistics{Total: 10, PercentAnswered: 50, PercentCorrect: 30}, nil
		},
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodGet, "/api/flashcards/statistics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StatisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(10), resp.TotalFlashcards)
	assert.InDelta(t, 50.0, resp.AnsweredPercentage, 0.001)
	assert.InDelta(t, 30.0, resp.CorrectPercentage, 0.001)
}

func TestResetProgressHandler(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		resetFn: func(context.Context, uuid.UUID) (int64, error) { return 4, nil },
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodPost, "/api/flashcards/reset", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Flashcard progress reset successfully", resp.Message)
}

func TestHistoryHandler(t *testing.T) {
	owner := uuid.New()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubFlashcardService{
		historyFn: func(context.Context, uuid.UUID, int64, bool) ([]service.HistoryEntry, error) {
			return []service.HistoryEntry{
				{
					AuditID:   2,
					CreatedAt: created,
					Snapshot:  snapshotOf("Q2", "A", domain.StatusNotAnswered),
				},
				{
					AuditID:   1,
					CreatedAt: created.Add(-time.Hour),
					Snapshot:  snapshotOf("Q1", "A", domain.StatusNotAnswered),
				},
			}, nil
		},
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodGet, "/api/flashcards/5/history", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.FlashcardID)
	require.Len(t, resp.History, 2)
	assert.Equal(t, int64(2), resp.History[0].AuditID)
	assert.Equal(t, "Q2", resp.History[0].Question)
	assert.False(t, resp.History[0].Deleted)
}

// Show, History, and Revert serve only active flashcards: a trashed one is
// reported as not found. Delete still looks up with deleted included so it
// can branch to a permanent delete.
func TestTrashedFlashcardsHiddenFromReadRoutes(t *testing.T) {
	owner := uuid.New()

	var findIncluded, historyIncluded, revertIncluded *bool
	svc := &stubFlashcardService{
		findFn: func(_ context.Context, _ uuid.UUID, _ int64, includeDeleted bool) (*domain.Flashcard, error) {
			findIncluded = &includeDeleted
			return nil, store.ErrFlashcardNotFound
		},
		historyFn: func(_ context.Context, _ uuid.UUID, _ int64, includeDeleted bool) ([]service.HistoryEntry, error) {
			historyIncluded = &includeDeleted
			return nil, store.ErrFlashcardNotFound
		},
		revertFn: func(_ context.Context, _ uuid.UUID, _, _ int64, includeDeleted bool) (*domain.Flashcard, error) {
			revertIncluded = &includeDeleted
			return nil, store.ErrFlashcardNotFound
		},
	}
	router := testRouter(svc, owner)

	rec := doJSON(t, router, http.MethodGet, "/api/flashcards/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, findIncluded)
	assert.False(t, *findIncluded)

	rec = doJSON(t, router, http.MethodGet, "/api/flashcards/1/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, historyIncluded)
	assert.False(t, *historyIncluded)

	rec = doJSON(t, router, http.MethodPost, "/api/flashcards/1/history", `{"audit_id":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, revertIncluded)
	assert.False(t, *revertIncluded)
}

func TestListHandler(t *testing.T) {
	owner := uuid.New()
	svc := &stubFlashcardService{
		listFn: func(context.Context, uuid.UUID) ([]*domain.Flashcard, error) {
			return []*domain.Flashcard{sampleCard(owner)}, nil
		},
	}
	rec := doJSON(t, testRouter(svc, owner), http.MethodGet, "/api/flashcards/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []FlashcardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(1), resp[0].ID)
}
