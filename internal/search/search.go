package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	collectionName = "news"
	// VectorDim must match the embedder output; the collection schema pins it.
	VectorDim = 384

	connectTimeout = 2 * time.Second
	requestTimeout = 30 * time.Second
)

var (
	ErrNotFound = errors.New("search: not found")
	// ErrSchemaConflict marks a collection bootstrap failure that is not
	// recoverable by retrying; callers treat it as fatal.
	ErrSchemaConflict = errors.New("search: schema conflict")
)

type Metrics interface {
	ObserveSearch(method string, err error, duration time.Duration)
}

type Config struct {
	Host     string
	Port     int
	Protocol string
	APIKey   string
}

// Client speaks the Typesense REST API: collection bootstrap, JSONL bulk
// import, document retrieval, keyword and vector search, and health.
type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	metrics Metrics
}

func New(cfg Config, metrics Metrics) *Client {
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = "http"
	}
	return &Client{
		base:   fmt.Sprintf("%s://%s:%d", protocol, cfg.Host, cfg.Port),
		apiKey: cfg.APIKey,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		metrics: metrics,
	}
}

func (c *Client) observe(method string, err error, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveSearch(method, err, time.Since(start))
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-TYPESENSE-API-KEY", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.http.Do(req)
}

func decodeError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(payload))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("search: status %d: %s", resp.StatusCode, msg)
}

type field struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Facet  bool   `json:"facet,omitempty"`
	NumDim int    `json:"num_dim,omitempty"`
}

type collectionSchema struct {
	Name                string  `json:"name"`
	Fields              []field `json:"fields"`
	DefaultSortingField string  `json:"default_sorting_field"`
}

// EnsureCollection creates the news collection when it does not exist and
// leaves an existing one untouched. Any other bootstrap failure surfaces as
// ErrSchemaConflict.
func (c *Client) EnsureCollection(ctx context.Context) (err error) {
	defer func(start time.Time) { c.observe("EnsureCollection", err, start) }(time.Now())

	resp, err := c.do(ctx, http.MethodGet, "/collections/"+collectionName, nil, nil, "")
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("%w: retrieve collection returned %d", ErrSchemaConflict, resp.StatusCode)
	}

	schema := collectionSchema{
		Name: collectionName,
		Fields: []field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "body", Type: "string"},
			{Name: "source", Type: "string", Facet: true},
			{Name: "tags", Type: "string[]", Facet: true},
			{Name: "published_at", Type: "int64", Facet: true},
			{Name: "vec", Type: "float[]", NumDim: VectorDim},
		},
		DefaultSortingField: "published_at",
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	resp, err = c.do(ctx, http.MethodPost, "/collections", nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusConflict:
		// conflict means another writer created it between the two calls
		io.Copy(io.Discard, resp.Body)
		return nil
	default:
		createErr := decodeError(resp)
		return fmt.Errorf("%w: %v", ErrSchemaConflict, createErr)
	}
}

// Health returns the engine's health document, e.g. {"ok": true}.
func (c *Client) Health(ctx context.Context) (status map[string]any, err error) {
	defer func(start time.Time) { c.observe("Health", err, start) }(time.Now())

	resp, err := c.do(ctx, http.MethodGet, "/health", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	if err = json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return status, nil
}

// Document is the search-engine projection of one article record.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	Tags        []string  `json:"tags"`
	PublishedAt int64     `json:"published_at"`
	Vec         []float64 `json:"vec"`
}

type importLine struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ImportDocuments bulk-upserts docs via newline-delimited JSON with
// action=upsert. Any rejected line fails the whole call so the caller's
// watermark does not advance past unindexed records.
func (c *Client) ImportDocuments(ctx context.Context, docs []Document) (err error) {
	defer func(start time.Time) { c.observe("ImportDocuments", err, start) }(time.Now())

	if len(docs) == 0 {
		return nil
	}

	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	for _, doc := range docs {
		if err = enc.Encode(doc); err != nil {
			return err
		}
	}

	query := url.Values{"action": []string{"upsert"}}
	resp, err := c.do(ctx, http.MethodPost, "/collections/"+collectionName+"/documents/import", query, &payload, "text/plain")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	line := 0
	for dec.More() {
		var result importLine
		if err = dec.Decode(&result); err != nil {
			return fmt.Errorf("search: decode import response: %w", err)
		}
		if !result.Success {
			return fmt.Errorf("search: import line %d rejected: %s", line, result.Error)
		}
		line++
	}
	return nil
}

// RetrieveDocument fetches one indexed document by id. Missing documents
// return ErrNotFound.
func (c *Client) RetrieveDocument(ctx context.Context, id string) (doc map[string]any, err error) {
	defer func(start time.Time) { c.observe("RetrieveDocument", err, start) }(time.Now())

	resp, err := c.do(ctx, http.MethodGet, "/collections/"+collectionName+"/documents/"+url.PathEscape(id), nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	if err = json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type Params struct {
	Q           string
	QueryBy     string
	SortBy      string
	PerPage     int
	Page        int
	VectorQuery string
}

// Hit is one search result entry. Score is only populated when the API layer
// applies personalization blending.
type Hit struct {
	Document       map[string]any `json:"document"`
	TextMatch      *int64         `json:"text_match,omitempty"`
	RankingScore   *float64       `json:"_ranking_score,omitempty"`
	VectorScore    *float64       `json:"vector_score,omitempty"`
	VectorDistance *float64       `json:"vector_distance,omitempty"`
	Score          *float64       `json:"score,omitempty"`
}

// DocumentID returns the hit document's id, or "".
func (h Hit) DocumentID() string {
	if h.Document == nil {
		return ""
	}
	id, _ := h.Document["id"].(string)
	return id
}

// BaseScore is the hit's ranking score, 0 when the engine supplied none.
func (h Hit) BaseScore() float64 {
	if h.RankingScore != nil {
		return *h.RankingScore
	}
	return 0
}

// SimilarityScore is the hit's vector similarity, 0 when absent. Engines
// that report cosine distance instead are converted (similarity = 1 - d).
func (h Hit) SimilarityScore() float64 {
	if h.VectorScore != nil {
		return *h.VectorScore
	}
	if h.VectorDistance != nil {
		return 1 - *h.VectorDistance
	}
	return 0
}

type Result struct {
	Found         int            `json:"found"`
	Hits          []Hit          `json:"hits"`
	Page          int            `json:"page"`
	RequestParams map[string]any `json:"request_params,omitempty"`
	SearchTimeMs  int            `json:"search_time_ms"`
}

func (c *Client) Search(ctx context.Context, params Params) (res *Result, err error) {
	defer func(start time.Time) { c.observe("Search", err, start) }(time.Now())

	query := url.Values{}
	query.Set("q", params.Q)
	query.Set("query_by", params.QueryBy)
	if params.SortBy != "" {
		query.Set("sort_by", params.SortBy)
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.VectorQuery != "" {
		query.Set("vector_query", params.VectorQuery)
	}

	resp, err := c.do(ctx, http.MethodGet, "/collections/"+collectionName+"/documents/search", query, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	res = &Result{}
	if err = json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, err
	}
	return res, nil
}

// FormatVectorQuery renders a typesense vector query clause,
// e.g. vec:([0.1,0.2], k:10).
func FormatVectorQuery(vec []float64, k int) string {
	var b strings.Builder
	b.WriteString("vec:([")
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	fmt.Fprintf(&b, "], k:%d)", k)
	return b.String()
}
