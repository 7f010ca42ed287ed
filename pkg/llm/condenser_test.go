package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/internal/types"
	"docchat/pkg/llm"
)

func TestCondenseEmptyHistoryPassesThrough(t *testing.T) {
	model := &fakeModel{response: "rewritten"}
	c := llm.NewCondenserWithModel(model, llm.CondenserConfig{})

	out, err := c.Condense(context.Background(), nil, "what was the deposit at the end of 2024?")
	require.NoError(t, err)

	assert.Equal(t, "what was the deposit at the end of 2024?", out)
	assert.Zero(t, model.calls) // no rewriting needed without prior context
}

func TestCondenseUsesHistory(t *testing.T) {
	model := &fakeModel{response: "What were the total deposits at the end of 2023?"}
	c := llm.NewCondenserWithModel(model, llm.CondenserConfig{})

	history := []models.Turn{
		{
			Utterance: "what was the deposit at the end of 2024?",
			Answer:    models.Answer{Text: "Depozyty wyniosły 120M."},
		},
	}

	out, err := c.Condense(context.Background(), history, "and in 2023?")
	require.NoError(t, err)

	assert.Equal(t, "What were the total deposits at the end of 2023?", out)
	require.Equal(t, 1, model.calls)

	joined := fmt.Sprint(model.prompts)
	assert.Contains(t, joined, "what was the deposit at the end of 2024?")
	assert.Contains(t, joined, "and in 2023?")
}

func TestCondenseBlankRewriteFallsBackToUtterance(t *testing.T) {
	model := &fakeModel{response: "   "}
	c := llm.NewCondenserWithModel(model, llm.CondenserConfig{})

	out, err := c.Condense(context.Background(), []models.Turn{{Utterance: "hi"}}, "and in 2023?")
	require.NoError(t, err)
	assert.Equal(t, "and in 2023?", out)
}

func TestCondenseWrapsModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("boom")}
	c := llm.NewCondenserWithModel(model, llm.CondenserConfig{})

	_, err := c.Condense(context.Background(), []models.Turn{{Utterance: "hi"}}, "and in 2023?")
	var modelErr *types.ModelError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, "condense", modelErr.Op)
}
