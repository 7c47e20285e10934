package runctx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_TagsLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx, run := Start(context.Background(), zerolog.New(&buf))

	assert.Len(t, run.ID, 16)
	assert.Same(t, run, From(ctx))

	zerolog.Ctx(ctx).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, run.ID, line["run_id"])
}

func TestFrom_Missing(t *testing.T) {
	assert.Equal(t, "unknown", From(context.Background()).ID)
}

func TestWrap(t *testing.T) {
	ctx, run := Start(context.Background(), zerolog.Nop())
	boom := errors.New("boom")

	err := Wrap(ctx, boom)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), run.ID)

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, run.ID, re.RunID)

	assert.NoError(t, Wrap(ctx, nil))
}
