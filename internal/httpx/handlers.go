package httpx

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"newswire/internal/profile"
	"newswire/internal/search"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	// Blend weights for personalized re-ranking: final = base*baseWeight +
	// user-similarity*userWeight.
	baseWeight = 0.8
	userWeight = 0.2
)

// SearchResponse is the API shape for /search. Hits pass through the engine's
// shape; each gains a score field when personalization re-ranks the page.
type SearchResponse struct {
	Found         int            `json:"found"`
	Hits          []search.Hit   `json:"hits"`
	Page          int            `json:"page"`
	RequestParams map[string]any `json:"request_params"`
	SearchTimeMs  int            `json:"search_time_ms"`
	Cursor        string         `json:"cursor,omitempty"`
}

func searchHandler(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParam("q")
		if q == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "q is required")
		}

		limit := clampLimit(parseInt(c.QueryParam("limit"), defaultLimit))
		semantic, _ := strconv.ParseBool(c.QueryParam("semantic"))
		cursor := c.QueryParam("cursor")
		userID := c.QueryParam("user_id")

		ctx := c.Request().Context()

		var params search.Params
		if semantic {
			qVec := cfg.Encoder.Encode(q)
			params = search.Params{
				Q:           "*",
				QueryBy:     "title",
				VectorQuery: search.FormatVectorQuery(qVec, limit),
			}
		} else {
			params = search.Params{
				Q:       q,
				QueryBy: "title,body",
				SortBy:  "published_at:desc",
				PerPage: limit,
				Page:    parseInt(cursor, 0),
			}
		}

		res, err := cfg.Search.Search(ctx, params)
		if err != nil {
			return err
		}

		if userID != "" {
			if err := blendForUser(c, cfg, res, userID, limit); err != nil {
				return err
			}
		}

		resp := SearchResponse{
			Found:         res.Found,
			Hits:          res.Hits,
			Page:          res.Page,
			RequestParams: res.RequestParams,
			SearchTimeMs:  res.SearchTimeMs,
		}
		if resp.Hits == nil {
			resp.Hits = []search.Hit{}
		}
		if !semantic && len(res.Hits) == limit {
			resp.Cursor = strconv.Itoa(res.Page + 1)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// blendForUser re-ranks the base hit page by 0.8*base + 0.2*similarity to the
// user's interest vector. A user without a profile (or with an empty one)
// leaves the page untouched.
func blendForUser(c echo.Context, cfg Config, res *search.Result, userID string, limit int) error {
	ctx := c.Request().Context()

	interest, _, err := cfg.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil
		}
		return err
	}
	if !hasSignal(interest) {
		return nil
	}

	userRes, err := cfg.Search.Search(ctx, search.Params{
		Q:           "*",
		QueryBy:     "title",
		VectorQuery: search.FormatVectorQuery(interest, limit),
	})
	if err != nil {
		return err
	}

	userScores := make(map[string]float64, len(userRes.Hits))
	for _, hit := range userRes.Hits {
		if id := hit.DocumentID(); id != "" {
			userScores[id] = hit.SimilarityScore()
		}
	}

	for i := range res.Hits {
		blended := baseWeight*res.Hits[i].BaseScore() + userWeight*userScores[res.Hits[i].DocumentID()]
		res.Hits[i].Score = &blended
	}
	sort.SliceStable(res.Hits, func(i, j int) bool {
		return *res.Hits[i].Score > *res.Hits[j].Score
	})
	return nil
}

func clickHandler(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Param("user_id")
		docID := c.Param("doc_id")
		ctx := c.Request().Context()

		doc, err := cfg.Search.RetrieveDocument(ctx, docID)
		if err != nil {
			return err
		}

		vec := vectorField(doc, "vec")
		if len(vec) == 0 {
			return echo.NewHTTPError(http.StatusInternalServerError, "vector missing in document")
		}

		if err := cfg.Profiles.ApplyClick(ctx, userID, vec); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func vectorField(doc map[string]any, key string) []float64 {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	vec := make([]float64, 0, len(raw))
	for _, item := range raw {
		v, ok := item.(float64)
		if !ok {
			return nil
		}
		vec = append(vec, v)
	}
	return vec
}

func hasSignal(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return true
		}
	}
	return false
}

func parseInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// clampLimit forces limit into [1, maxLimit].
func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
