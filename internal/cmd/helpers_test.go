package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/movienighthub/movienight/internal/enrich"
	apperrors "github.com/movienighthub/movienight/internal/errors"
	"github.com/movienighthub/movienight/internal/ratelimit"
	"github.com/movienighthub/movienight/internal/server/handlers"
)

func TestLikedMoviesDedupAndFavorites(t *testing.T) {
	liked := likedMovies(
		[]string{"Arrival", " arrival ", "Heat", ""},
		[]string{"heat", "Paddington 2"},
	)

	assert.Equal(t, []enrich.LikedMovie{
		{Title: "Arrival"},
		{Title: "Heat", Favorite: true},
		{Title: "Paddington 2", Favorite: true},
	}, liked)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "cold-war-2018", sanitizeFilename("Cold War (2018)"))
	assert.Equal(t, "amelie", sanitizeFilename("  Amelie.  "))
	assert.Equal(t, "output", sanitizeFilename("???"))
}

func TestBuildInitConfigIsValidYAML(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(buildInitConfig("sk-test")), &doc))

	ai, ok := doc["ai"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "anthropic", ai["provider"])
	assert.Equal(t, "sk-test", ai["api_key"])

	queue, ok := doc["queue"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "@every 30s", queue["schedule"])
}

func TestBuildInitConfigWithoutKey(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(buildInitConfig("")), &doc))

	ai := doc["ai"].(map[string]any)
	_, hasKey := ai["api_key"]
	assert.False(t, hasKey)
}

func TestDescribeExitError(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, describeExitError(plain))
	assert.Nil(t, describeExitError(nil))

	wrapped := apperrors.WrapDatabaseError(context.Background(), errors.New("database is locked"), "store query failed")
	assert.Equal(t, "[DATABASE_ERROR] store query failed: database is locked", describeExitError(wrapped).Error())

	bare := apperrors.NewConfigInvalidError("Version information missing")
	assert.Equal(t, "[CONFIG_INVALID] Version information missing", describeExitError(bare).Error())
}

func TestAIHealthCheckerDegrades(t *testing.T) {
	ctx := context.Background()

	err := aiHealthChecker{app: &app{Tracker: ratelimit.New()}}.CheckHealth(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, handlers.ErrDegraded)
	assert.Contains(t, err.Error(), "not configured")

	tracker := ratelimit.New()
	a := &app{Tracker: tracker, Requester: enrich.NewRequester(nil, tracker)}
	assert.NoError(t, aiHealthChecker{app: a}.CheckHealth(ctx))

	tracker.SetRateLimited()
	err = aiHealthChecker{app: a}.CheckHealth(ctx)
	assert.ErrorIs(t, err, handlers.ErrDegraded)
	assert.Contains(t, err.Error(), "cooling down")
}
