package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	require.Len(t, c.Genres, 13)
	require.Len(t, c.Moods, 8)
	require.Len(t, c.Streaming, 9)
	require.True(t, c.ValidGenre("Sci-Fi"))
	require.True(t, c.ValidMood("Thought-provoking"))
}

func TestNormalizeDropsUnknownValues(t *testing.T) {
	c := Default()

	f := c.Normalize("NotARealGenre", "Grumpy", []string{"Betamax"})
	require.Equal(t, "", f.Genre)
	require.Equal(t, "", f.Mood)
	require.Empty(t, f.Streaming)
	require.True(t, f.Empty())
}

func TestNormalizeArrival(t *testing.T) {
	f := Default().Normalize("Sci-Fi", "Thought-provoking", []string{"Netflix", "FakeService"})

	require.Equal(t, Fields{
		Genre:     "Sci-Fi",
		Mood:      "Thought-provoking",
		Streaming: []string{"Netflix"},
	}, f)
}

func TestNormalizeIsCaseSensitive(t *testing.T) {
	f := Default().Normalize("sci-fi", "FUN", []string{"netflix"})
	require.True(t, f.Empty())
}

func TestFilterStreamingDeduplicates(t *testing.T) {
	got := Default().FilterStreaming([]string{"Hulu", "Netflix", "Hulu"})
	require.Equal(t, []string{"Hulu", "Netflix"}, got)
}

func TestParseRejectsIncompleteCatalog(t *testing.T) {
	_, err := Parse([]byte("genres: [Drama]\nmoods: [Fun]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("genres: [\n"))
	require.Error(t, err)
}

func TestParseRejectsDuplicatesAndBlanks(t *testing.T) {
	_, err := Parse([]byte("genres: [Drama, Drama]\nmoods: [Fun]\nstreaming: [Netflix]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("genres: [Drama]\nmoods: [\"\"]\nstreaming: [Netflix]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("genres: [Drama]\nmoods: [Fun]\nstreaming: [Netflix]\nratings: [PG]\n"))
	require.Error(t, err)
}

func TestParseAcceptsMinimalCatalog(t *testing.T) {
	c, err := Parse([]byte("genres: [Drama]\nmoods: [Fun]\nstreaming: [Netflix]\n"))
	require.NoError(t, err)
	require.True(t, c.ValidGenre("Drama"))
}
