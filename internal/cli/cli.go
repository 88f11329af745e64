// Package cli implements the interactive flashcard console: a login prompt
// followed by a menu loop over the same service operations the HTTP API
// exposes, with identical validation messages.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/cardlog/cardlog/internal/api"
	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/service"
	"github.com/cardlog/cardlog/internal/service/auth"
	"github.com/cardlog/cardlog/internal/store"
)

// App is the interactive console application. Input and output are plain
// streams so tests can script a full session.
type App struct {
	in       *bufio.Scanner
	out      io.Writer
	users    store.UserStore
	verifier auth.PasswordVerifier
	service  service.FlashcardService
	logger   *slog.Logger
}

// New creates a console App reading from in and writing to out.
func New(
	in io.Reader,
	out io.Writer,
	users store.UserStore,
	verifier auth.PasswordVerifier,
	svc service.FlashcardService,
	logger *slog.Logger,
) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		in:       bufio.NewScanner(in),
		out:      out,
		users:    users,
		verifier: verifier,
		service:  svc,
		logger:   logger.With(slog.String("component", "cli")),
	}
}

// Run starts the interactive session: login, then the menu loop until the
// user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	a.info("Welcome to the Flashcard Interactive CLI! You must login to proceed.")

	user, err := a.login(ctx)
	if err != nil {
		return err
	}
	a.info("You have successfully logged in. Welcome, %s!", user.Email)

	for {
		a.printMenu()
		choice, ok := a.ask("Choose an action")
		if !ok {
			return nil
		}

		switch strings.TrimSpace(choice) {
		case "0":
			a.info("Goodbye!")
			return nil
		case "1":
			a.createFlashcard(ctx, user.ID)
		case "2":
			a.listFlashcards(ctx, user.ID)
		case "3":
			a.viewFlashcard(ctx, user.ID)
		case "4":
			a.editFlashcard(ctx, user.ID)
		case "5":
			a.deleteFlashcard(ctx, user.ID)
		case "6":
			a.restoreFlashcard(ctx, user.ID)
		case "7":
			a.revertFlashcard(ctx, user.ID)
		case "8":
			a.practiceFlashcards(ctx, user.ID)
		case "9":
			a.showStatistics(ctx, user.ID)
		case "10":
			a.resetProgress(ctx, user.ID)
		default:
			a.errorf("Invalid action.")
		}
	}
}

func (a *App) printMenu() {
	fmt.Fprintln(a.out)
	a.info("What would you like to do?")
	for _, line := range []string{
		"  1. Create a new flashcard",
		"  2. List all flashcards",
		"  3. View a flashcard",
		"  4. Edit a flashcard",
		"  5. Delete a flashcard",
		"  6. Restore a flashcard",
		"  7. Revert a flashcard",
		"  8. Practice",
		"  9. Statistics",
		"  10. Reset",
		"  0. Exit",
	} {
		fmt.Fprintln(a.out, line)
	}
}

// login prompts for credentials until they match a stored user or input
// ends.
func (a *App) login(ctx context.Context) (*domain.User, error) {
	for {
		email, ok := a.ask("Enter your email")
		if !ok {
			return nil, errors.New("input closed during login")
		}
		password, ok := a.ask("Enter your password")
		if !ok {
			return nil, errors.New("input closed during login")
		}

		user, err := a.users.GetByEmail(ctx, email)
		if err == nil {
			if a.verifier.Compare(user.HashedPassword, password) == nil {
				return user, nil
			}
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}

		a.errorf("Wrong email or password")
	}
}

func (a *App) createFlashcard(ctx context.Context, userID uuid.UUID) {
	a.info("Creating a new flashcard...")

	question, ok := a.ask("Enter the question")
	if !ok {
		return
	}
	answer, ok := a.ask("Enter the answer")
	if !ok {
		return
	}

	if _, err := a.service.Create(ctx, userID, question, answer); err != nil {
		a.serviceError(err)
		return
	}
	a.info("Flashcard created successfully!")
}

func (a *App) listFlashcards(ctx context.Context, userID uuid.UUID) {
	a.info("Listing all flashcards...")

	cards, err := a.service.List(ctx, userID)
	if err != nil {
		a.serviceError(err)
		return
	}
	if len(cards) == 0 {
		a.info("No flashcards found.")
		return
	}

	w := a.table("ID", "Question", "Answer", "Status", "Deleted")
	for _, card := range cards {
		deleted := "No"
		if card.Trashed() {
			deleted = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			card.ID, card.Question, card.Answer, card.Status, deleted)
	}
	_ = w.Flush()
}

func (a *App) viewFlashcard(ctx context.Context, userID uuid.UUID) {
	a.info("Viewing a flashcard...")

	card := a.selectFlashcard(ctx, userID, false)
	if card == nil {
		return
	}

	a.info("Question: %s", card.Question)
	a.info("Answer: %s", card.Answer)
}

func (a *App) editFlashcard(ctx context.Context, userID uuid.UUID) {
	a.info("Editing a flashcard...")

	card := a.selectFlashcard(ctx, userID, false)
	if card == nil {
		return
	}

	question, ok := a.askDefault("Enter the new question", card.Question)
	if !ok {
		return
	}
	answer, ok := a.askDefault("Enter the new answer", card.Answer)
	if !ok {
		return
	}

	if _, err := a.service.Edit(ctx, userID, card.ID, question, answer); err != nil {
		a.serviceError(err)
		return
	}
	a.info("Flashcard updated successfully!")
}

func (a *App) deleteFlashcard(ctx context.Context, userID uuid.UUID) {
	a.info("Deleting a flashcard...")

	card := a.selectFlashcard(ctx, userID, true)
	if card == nil {
		return
	}

	if card.Trashed() {
		prompt := fmt.Sprintf(
			"Are you sure you want to PERMANENTLY delete flashcard %d with question: %s? This action cannot be undone.",
			card.ID, card.Question)
		if !a.confirm(prompt) {
			a.info("Deletion cancelled.")
			return
		}
		if err := a.service.PermanentlyDelete(ctx, userID, card.ID); err != nil {
			a.serviceError(err)
			return
		}
		a.info("Flashcard permanently deleted.")
		return
	}

	prompt := fmt.Sprintf(
		"Are you sure you want to delete flashcard %d with question: %s?",
		card.ID, card.Question)
	if !a.confirm(prompt) {
		a.info("Deletion cancelled.")
		return
	}
	if err := a.service.SoftDelete(ctx, userID, card.ID); err != nil {
		a.serviceError(err)
		return
	}
	a.info("Flashcard deleted successfully.")
}

func (a *App) restoreFlashcard(ctx context.Context, userID uuid.UUID) {
	a.info("Restoring a flashcard...")

	card := a.selectFlashcard(ctx, userID, true)
	if card == nil {
		return
	}

	if _, err := a.service.Restore(ctx, userID, card.ID); err != nil {
		if errors.Is(err, service.ErrNotDeleted) {
			a.errorf("Flashcard is not deleted.")
			return
		}
		a.serviceError(err)
		return
	}
	a.info("Flashcard restored successfully.")
}

func (a *App) revertFlashcard(ctx context.Context, userID uuid.UUID) {
	a.info("Reverting a flashcard to a previous state...")

	card := a.selectFlashcard(ctx, userID, true)
	if card == nil {
		return
	}

	entries, err := a.service.History(ctx, userID, card.ID, true)
	if err != nil {
		a.serviceError(err)
		return
	}

	a.info("Audit History for Flashcard #%d:", card.ID)
	w := a.table("ID", "Question", "Answer", "Status", "Deleted")
	for _, e := range entries {
		deleted := "No"
		if e.Snapshot.Trashed() {
			deleted = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.AuditID, e.Snapshot.Question, e.Snapshot.Answer, e.Snapshot.Status, deleted)
	}
	_ = w.Flush()

	raw, ok := a.ask(`Enter the ID of the state you want to revert to (or type "exit" to cancel)`)
	if !ok {
		return
	}
	if raw == "exit" {
		a.info("Revert cancelled.")
		return
	}

	auditID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		a.errorf("%s", api.IntegerFieldMessage("id"))
		return
	}

	if _, err := a.service.RevertToAudit(ctx, userID, card.ID, auditID, true); err != nil {
		a.serviceError(err)
		return
	}
	a.info("Flashcard #%d reverted to state #%d successfully.", card.ID, auditID)
}

func (a *App) practiceFlashcards(ctx context.Context, userID uuid.UUID) {
	a.info("Starting practice mode...")

	for {
		cards, err := a.service.List(ctx, userID)
		if err != nil {
			a.serviceError(err)
			return
		}
		if len(cards) == 0 {
			a.info("You have no flashcards to practice.")
			return
		}

		w := a.table("ID", "Question", "Status")
		var correct int
		for _, card := range cards {
			if card.Status == domain.StatusCorrect {
				correct++
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", card.ID, card.Question, card.Status)
		}
		_ = w.Flush()

		percent := math.Round(float64(correct)/float64(len(cards))*100*100) / 100
		a.info("Completion Percentage: %v%%", percent)

		raw, ok := a.ask(`Enter the ID of the question you want to practice (or type "exit" to stop)`)
		if !ok {
			return
		}
		if raw == "exit" {
			a.info("Exiting practice mode.")
			return
		}

		card := a.findByRawID(ctx, userID, raw)
		if card == nil {
			return
		}
		if card.Status == domain.StatusCorrect {
			a.errorf("You have already answered this question correctly. Please select another question.")
			continue
		}

		a.info("Question: %s", card.Question)
		// Graded by exact match, so the raw line is kept as typed.
		answer, ok := a.askRaw("Enter your answer")
		if !ok {
			return
		}

		result, err := a.service.Practice(ctx, userID, card.ID, answer)
		if err != nil {
			a.serviceError(err)
			continue
		}
		if result.Correct {
			a.info("Correct!")
		} else {
			a.errorf("Incorrect. The correct answer is: %s", result.Card.Answer)
		}
	}
}

func (a *App) showStatistics(ctx context.Context, userID uuid.UUID) {
	a.info("Showing statistics...")

	stats, err := a.service.Statistics(ctx, userID)
	if err != nil {
		a.serviceError(err)
		return
	}

	a.info("Total questions: %d", stats.Total)
	a.info("Percentage of questions answered: %v%%", stats.PercentAnswered)
	a.info("Percentage correctly answered: %v%%", stats.PercentCorrect)
}

func (a *App) resetProgress(ctx context.Context, userID uuid.UUID) {
	if !a.confirm("Are you sure you want to reset all your practice progress?") {
		a.info("Reset cancelled.")
		return
	}
	if _, err := a.service.ResetProgress(ctx, userID); err != nil {
		a.serviceError(err)
		return
	}
	a.info("Practice progress reset successfully.")
}

// selectFlashcard asks for an ID and loads the flashcard. Prints the
// relevant error and returns nil when it cannot be loaded.
func (a *App) selectFlashcard(
	ctx context.Context,
	userID uuid.UUID,
	includeDeleted bool,
) *domain.Flashcard {
	raw, ok := a.ask("Enter the ID of the flashcard")
	if !ok {
		return nil
	}
	return a.findByRawIDWithDeleted(ctx, userID, raw, includeDeleted)
}

func (a *App) findByRawID(ctx context.Context, userID uuid.UUID, raw string) *domain.Flashcard {
	return a.findByRawIDWithDeleted(ctx, userID, raw, false)
}

func (a *App) findByRawIDWithDeleted(
	ctx context.Context,
	userID uuid.UUID,
	raw string,
	includeDeleted bool,
) *domain.Flashcard {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		a.errorf("%s", api.IntegerFieldMessage("id"))
		return nil
	}

	card, err := a.service.Find(ctx, userID, id, includeDeleted)
	if err != nil {
		if store.IsNotFoundError(err) {
			a.errorf("Flashcard not found.")
		} else {
			a.serviceError(err)
		}
		return nil
	}
	return card
}

// ask prompts and reads one trimmed line. The second return is false when
// input has ended.
func (a *App) ask(prompt string) (string, bool) {
	answer, ok := a.askRaw(prompt)
	return strings.TrimSpace(answer), ok
}

// askRaw is ask without trimming.
func (a *App) askRaw(prompt string) (string, bool) {
	fmt.Fprintf(a.out, "%s: ", prompt)
	if !a.in.Scan() {
		return "", false
	}
	return a.in.Text(), true
}

// askDefault is ask with a default used when the user submits a blank line.
func (a *App) askDefault(prompt, def string) (string, bool) {
	answer, ok := a.ask(fmt.Sprintf("%s [%s]", prompt, def))
	if !ok {
		return "", false
	}
	if answer == "" {
		return def, true
	}
	return answer, true
}

// confirm asks a yes/no question; only "y"/"yes" count as yes.
func (a *App) confirm(prompt string) bool {
	answer, ok := a.ask(prompt + " (yes/no)")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *App) table(headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func (a *App) info(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) errorf(format string, args ...any) {
	fmt.Fprintf(a.out, "ERROR: "+format+"\n", args...)
}

// serviceError prints the same sanitized message the HTTP API would return
// for this error.
func (a *App) serviceError(err error) {
	a.logger.Debug("service call failed", slog.String("error", err.Error()))
	a.errorf("%s", api.GetSafeErrorMessage(err))
}
