package enrich

import (
	"fmt"
	"strings"

	"github.com/movienighthub/movienight/internal/catalog"
)

// MoviePrompt asks for one JSON object whose enumerated fields are limited
// to the catalog.
func MoviePrompt(c *catalog.Catalog, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search for information about the movie %q. Find the TMDB (The Movie Database) page for this movie to get accurate details.\n\n", title)
	b.WriteString("Return ONLY a valid JSON object with these exact fields:\n{\n")
	b.WriteString("  \"title\": \"Official movie title\",\n")
	b.WriteString("  \"director\": \"Director's full name\",\n")
	b.WriteString("  \"year\": 2020,\n")
	fmt.Fprintf(&b, "  \"genre\": \"One genre from: %s\",\n", catalog.PromptList(c.Genres))
	fmt.Fprintf(&b, "  \"mood\": \"One mood from: %s\",\n", catalog.PromptList(c.Moods))
	fmt.Fprintf(&b, "  \"streaming\": [\"Array of streaming services where currently available from: %s\"]\n", catalog.PromptList(c.Streaming))
	b.WriteString("}\n\n")
	b.WriteString("Important: Return ONLY the JSON object, no other text or explanation.")
	return b.String()
}

// RecommendationPrompt asks for a JSON array of recommendations based on
// titles the household liked.
func RecommendationPrompt(c *catalog.Catalog, liked []LikedMovie, count int) string {
	entries := make([]string, 0, len(liked))
	for _, m := range liked {
		entry := m.Title
		if m.Genre != "" {
			entry += " (" + m.Genre + ")"
		}
		if m.Favorite {
			entry += " ★"
		}
		entries = append(entries, entry)
	}

	genre, mood := "", ""
	if len(c.Genres) > 0 {
		genre = c.Genres[0]
	}
	if len(c.Moods) > 0 {
		mood = c.Moods[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Movies I like: %s\n\n", strings.Join(entries, ", "))
	fmt.Fprintf(&b, "Recommend %d similar movies. Return ONLY JSON array:\n", count)
	fmt.Fprintf(&b, "[{\"title\":\"Movie\",\"director\":\"Name\",\"year\":2020,\"genre\":%q,\"mood\":%q,\"reason\":\"Why\"}]\n\n", genre, mood)
	fmt.Fprintf(&b, "Use genres: %s\n", strings.Join(c.Genres, "/"))
	fmt.Fprintf(&b, "Use moods: %s", strings.Join(c.Moods, "/"))
	return b.String()
}
