package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured is installed before any test runs; Configure is once-only.
var captured bytes.Buffer

func TestMain(m *testing.M) {
	Configure(Config{Level: "debug", Output: &captured, Service: "guida-test"})
	m.Run()
}

func lastEntry(t *testing.T) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(captured.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestWithComponentFields(t *testing.T) {
	logger := WithComponent("fetch")
	logger.Info().Str("event", "test.component").Msg("hello")

	entry := lastEntry(t)
	assert.Equal(t, "guida-test", entry["service"])
	assert.Equal(t, "fetch", entry["component"])
	assert.Equal(t, "test.component", entry["event"])
	assert.Equal(t, "hello", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestJobIDRoundTrip(t *testing.T) {
	ctx := ContextWithJobID(context.Background(), "job-123")
	assert.Equal(t, "job-123", JobIDFromContext(ctx))
	assert.Empty(t, JobIDFromContext(context.Background()))
}

func TestFromContextCarriesJobID(t *testing.T) {
	ctx := ContextWithJobID(context.Background(), "job-456")
	logger := WithComponentFromContext(ctx, "guide")
	logger.Info().Msg("correlated")

	entry := lastEntry(t)
	assert.Equal(t, "job-456", entry["job_id"])
	assert.Equal(t, "guide", entry["component"])
}

func TestFromContextWithoutJobID(t *testing.T) {
	logger := FromContext(context.Background())
	logger.Info().Msg("plain")

	entry := lastEntry(t)
	_, hasJob := entry["job_id"]
	assert.False(t, hasJob)
}
