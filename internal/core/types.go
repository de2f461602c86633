package core

// MovieDetails is the TMDB metadata attached to a movie when it is added.
// Zero values mean the provider had nothing; they never fail the add.
type MovieDetails struct {
	TMDBID     int      `json:"tmdb_id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Year       *int     `json:"year,omitempty"`
	Poster     string   `json:"poster"`
	TMDBRating *float64 `json:"tmdb_rating"`
	TrailerURL string   `json:"trailer_url"`
	Cast       []string `json:"cast"`
}

// EmptyDetails is the shape returned when TMDB is unconfigured or has no match.
func EmptyDetails() MovieDetails {
	return MovieDetails{Cast: []string{}}
}

// SearchResult is one row of a title search.
type SearchResult struct {
	TMDBID   int    `json:"tmdb_id"`
	Title    string `json:"title"`
	Year     *int   `json:"year"`
	Poster   string `json:"poster"`
	Overview string `json:"overview"`
}

// TrendingMovie is one entry of the trending list.
type TrendingMovie struct {
	TMDBID     int     `json:"tmdb_id"`
	Title      string  `json:"title"`
	Year       *int    `json:"year"`
	Poster     string  `json:"poster"`
	Backdrop   string  `json:"backdrop"`
	Overview   string  `json:"overview"`
	Rating     float64 `json:"rating"`
	Popularity float64 `json:"popularity"`
}

// SimilarMovie is a recommendation derived from another title.
type SimilarMovie struct {
	TMDBID   int     `json:"tmdb_id"`
	Title    string  `json:"title"`
	Year     *int    `json:"year"`
	Poster   string  `json:"poster"`
	Rating   float64 `json:"rating"`
	Overview string  `json:"overview"`
}

// Ratings are the critic scores OMDb reports for a title.
type Ratings struct {
	IMDBID         string `json:"imdb_id,omitempty"`
	IMDBRating     string `json:"imdb_rating,omitempty"`
	RottenTomatoes string `json:"rotten_tomatoes,omitempty"`
	Metacritic     string `json:"metacritic,omitempty"`
	Runtime        string `json:"runtime,omitempty"`
	Rated          string `json:"rated,omitempty"`
}

// Empty reports whether no score was found.
func (r Ratings) Empty() bool {
	return r.IMDBRating == "" && r.RottenTomatoes == "" && r.Metacritic == ""
}
