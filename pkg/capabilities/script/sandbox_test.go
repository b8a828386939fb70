package script_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/capabilities/script"
)

func newSandbox() *script.Sandbox {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return script.NewSandbox(0, logger)
}

func TestRun_EvaluatesAgainstEnv(t *testing.T) {
	sandbox := newSandbox()

	value, err := sandbox.Run(context.Background(), `upper(title) + " (" + string(score) + ")"`, map[string]any{
		"title": "dam inspection",
		"score": 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "DAM INSPECTION (7)", value)
}

func TestRun_MapResult(t *testing.T) {
	sandbox := newSandbox()

	value, err := sandbox.Run(context.Background(), `{"level": score > 5 ? "high" : "low"}`, map[string]any{
		"score": 8,
	})
	require.NoError(t, err)

	result, ok := value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "high", result["level"])
}

func TestRun_CompileError(t *testing.T) {
	sandbox := newSandbox()

	_, err := sandbox.Run(context.Background(), `1 +`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile")
}

func TestRun_RuntimeFault(t *testing.T) {
	sandbox := newSandbox()

	// Undefined variables compile but evaluate to nil, so arithmetic on one
	// faults at run time.
	_, err := sandbox.Run(context.Background(), `missing + 1`, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script fault")
}
