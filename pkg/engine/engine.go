// Package engine runs the conversational query pipeline for one
// session: condense the utterance against the turn history, retrieve
// and filter passages, synthesize a citation-grounded answer, and
// append the completed turn to the history.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"docchat/internal/models"
	"docchat/internal/types"
)

// User-facing failure messages, in the fixed response language. Every
// query-time failure resolves to one of these; a raw error never
// reaches the chat surface.
const (
	StoreDownMessage = "Przepraszam, baza dokumentów jest obecnie niedostępna. Proszę spróbować później."
	FailureMessage   = "Przepraszam, nie udało się przetworzyć tej wiadomości. Proszę spróbować ponownie."
)

// Session states.
const (
	StateAwaitingInput = "awaiting_input"
	StateProcessing    = "processing"
)

// Engine is bound to exactly one session and is never shared. Turns
// are strictly sequential: a message arriving while another is in
// flight waits for the previous turn to commit.
type Engine struct {
	condenser types.Condenser
	retriever types.Retriever
	answerer  types.Answerer

	mu         sync.Mutex
	history    []models.Turn
	processing atomic.Bool
}

func New(condenser types.Condenser, retriever types.Retriever, answerer types.Answerer) *Engine {
	return &Engine{
		condenser: condenser,
		retriever: retriever,
		answerer:  answerer,
	}
}

// Ask processes one user turn to completion. The returned Answer is
// always safe to show the user; the error, when set, carries the
// underlying cause for logging. A failed or cancelled turn is not
// appended to the history and the session stays usable.
func (e *Engine) Ask(ctx context.Context, utterance string) (models.Answer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.processing.Store(true)
	defer e.processing.Store(false)

	condensed, err := e.condenser.Condense(ctx, e.history, utterance)
	if err != nil {
		return failureAnswer(err), err
	}

	results, err := e.retriever.Retrieve(ctx, condensed)
	if err != nil {
		return failureAnswer(err), err
	}

	answer, err := e.answerer.Answer(ctx, condensed, results)
	if err != nil {
		return failureAnswer(err), err
	}

	if ctx.Err() != nil {
		// The caller went away mid-turn; drop the partial result.
		return models.Answer{}, ctx.Err()
	}

	e.history = append(e.history, models.Turn{
		Utterance: utterance,
		Condensed: condensed,
		Answer:    answer,
	})
	return answer, nil
}

// State reports awaiting_input or processing.
func (e *Engine) State() string {
	if e.processing.Load() {
		return StateProcessing
	}
	return StateAwaitingInput
}

// History returns a copy of the committed turns.
func (e *Engine) History() []models.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Turn, len(e.history))
	copy(out, e.history)
	return out
}

func failureAnswer(err error) models.Answer {
	var unavailable *types.StoreUnavailable
	if errors.As(err, &unavailable) {
		return models.Answer{Text: StoreDownMessage}
	}
	return models.Answer{Text: FailureMessage}
}
