package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/enrich"
	"github.com/movienighthub/movienight/internal/llm"
	"github.com/movienighthub/movienight/internal/output"
)

var recommendFavorites []string

var recommendCmd = &cobra.Command{
	Use:   "recommend <title>...",
	Short: "Suggest movies similar to the given titles",
	Long: `Ask the AI provider for five movies similar to the given titles.
Titles passed with --favorite are weighted more heavily. Posters are looked
up on TMDB when an API key is configured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		outPath, outDir, err := resolveOutputTargets(cmd)
		if err != nil {
			return err
		}

		application, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close() // nolint:errcheck // best-effort cleanup

		if application.Requester == nil {
			return llm.ErrNotConfigured
		}

		recs, err := application.Requester.Recommend(cmd.Context(), likedMovies(args, recommendFavorites))
		if err != nil {
			return err
		}

		if application.TMDB.Configured() {
			for i := range recs {
				poster, err := application.TMDB.Poster(cmd.Context(), recs[i].Title, recs[i].Year)
				if err != nil {
					logDebug("Poster lookup failed", zap.String("title", recs[i].Title), zap.Error(err))
					continue
				}
				recs[i].Poster = poster
			}
		}

		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, "recommendations."+outputExtension(format))
		}

		rendered, err := output.NewFormatter(format).FormatRecommendations(recs)
		if err != nil {
			return err
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

// likedMovies marks titles that also appear in favorites (case-insensitive).
// Favorites not passed as arguments are appended.
func likedMovies(titles, favorites []string) []enrich.LikedMovie {
	fav := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		if key := strings.ToLower(strings.TrimSpace(f)); key != "" {
			fav[key] = true
		}
	}

	liked := make([]enrich.LikedMovie, 0, len(titles)+len(favorites))
	seen := make(map[string]bool, len(titles))
	for _, title := range titles {
		key := strings.ToLower(strings.TrimSpace(title))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		liked = append(liked, enrich.LikedMovie{Title: strings.TrimSpace(title), Favorite: fav[key]})
	}
	for _, f := range favorites {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		liked = append(liked, enrich.LikedMovie{Title: strings.TrimSpace(f), Favorite: true})
	}
	return liked
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	addOutputFlags(recommendCmd)
	recommendCmd.Flags().StringSliceVar(&recommendFavorites, "favorite", nil, "Titles to weight as favorites")
}
