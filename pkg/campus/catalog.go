// Package campus exposes the typed accessors behind the tutoring UI: degree
// programs, campus news, curriculum subjects, and book recommendations, all
// generated by a Gemini-backed client and normalized into domain records.
//
// Accessors never return errors. Live failures and unusable responses degrade
// to the embedded fallback datasets, substituted wholesale; the Source tag on
// each result is the only signal of that degradation.
package campus

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tutorkit/campus-gateway/pkg/extract"
	"github.com/tutorkit/campus-gateway/pkg/retry"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Generator is the surface of the generative client the catalog needs.
// internal/gemini implements it; tests substitute fakes.
type Generator interface {
	// GenerateJSON requests schema-constrained JSON and decodes it into out.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error

	// GenerateGrounded runs a search-grounded free-text generation, returning
	// the raw text and grounding-citation URLs aligned with chunk order.
	GenerateGrounded(ctx context.Context, prompt string) (string, []string, error)
}

// Result caps and viability thresholds per record kind. A below-threshold
// parse is discarded entirely in favor of the fallback set, never merged.
const (
	maxNews     = 4
	maxSubjects = 8

	// minViablePrograms guards against degenerate program lists; a real
	// institution offers more than a handful of programs, so fewer parsed
	// entries means the response was noise.
	minViablePrograms = 5
)

// Delimiter schemes for the free-text fallback paths. These match the formats
// the prompts ask for; segments that do not comply are dropped.
var (
	newsRule = extract.Rule{ListSeparator: "|||", FieldSeparator: "|", MinFields: 3}
	bookRule = extract.Rule{ListSeparator: "|||", FieldSeparator: "$$", MinFields: 3}
)

const programListSeparator = "|||"

// Options configures a Catalog. The zero value is a live catalog with no
// retries, no rate limit, no cache, and no metrics.
type Options struct {
	// Demo forces fallback-only operation. The decision whether a usable
	// credential exists is made once at startup and passed in here; it is
	// not re-evaluated per call.
	Demo bool

	Retry  retry.Policy
	Logger *slog.Logger

	// RateLimitRPS throttles live backend calls across all accessors.
	// <=0 disables throttling.
	RateLimitRPS float64

	// CacheSize and CacheTTL bound the live-result cache. Both must be
	// positive to enable caching. Fallback results are never cached.
	CacheSize int
	CacheTTL  time.Duration

	Metrics *Metrics
}

// Catalog answers the UI-facing data needs of the tutoring application.
type Catalog struct {
	gen     Generator
	demo    bool
	policy  retry.Policy
	logger  *slog.Logger
	limiter *rate.Limiter
	cache   *expirable.LRU[string, any]
	metrics *Metrics
}

// New constructs a Catalog. A nil generator forces demo mode.
func New(gen Generator, opts Options) *Catalog {
	if gen == nil {
		opts.Demo = true
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Catalog{
		gen:     gen,
		demo:    opts.Demo,
		logger:  logger,
		metrics: opts.Metrics,
	}

	policy := opts.Retry
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration) {
		c.metrics.countRetry()
		if userHook != nil {
			userHook(attempt, delay)
		}
	}
	c.policy = policy

	if opts.RateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		c.cache = expirable.NewLRU[string, any](opts.CacheSize, nil, opts.CacheTTL)
	}
	return c
}

// Demo reports whether the catalog was constructed in demo mode.
func (c *Catalog) Demo() bool {
	return c.demo
}

// Programs returns the degree programs offered by the named institution.
func (c *Catalog) Programs(ctx context.Context, university string) ([]string, Source) {
	university = strings.TrimSpace(university)
	return fetch(ctx, c, "programs", cacheKey("programs", university), FallbackPrograms, minViablePrograms,
		func(ctx context.Context) ([]string, error) {
			text, _, err := c.gen.GenerateGrounded(ctx, programsPrompt(university))
			if err != nil {
				return nil, err
			}
			return extract.List(text, programListSeparator), nil
		})
}

// News returns up to 4 recent news items for the named institution.
func (c *Catalog) News(ctx context.Context, university string) ([]NewsItem, Source) {
	university = strings.TrimSpace(university)
	items, source := fetch(ctx, c, "news", cacheKey("news", university), FallbackNews, 1,
		func(ctx context.Context) ([]NewsItem, error) {
			text, citations, err := c.gen.GenerateGrounded(ctx, newsPrompt(university))
			if err != nil {
				return nil, err
			}
			recs := extract.Records(text, newsRule)
			out := make([]NewsItem, 0, len(recs))
			for _, r := range recs {
				headline := extract.Field(r.Fields, 0)
				out = append(out, NewsItem{
					Headline: headline,
					Date:     extract.Field(r.Fields, 1),
					Snippet:  extract.Field(r.Fields, 2),
					Link:     extract.Link(extract.Field(r.Fields, 3), citations, r.Segment, headline),
				})
			}
			return out, nil
		})
	return extract.Truncate(items, maxNews), source
}

// subjectSchema constrains the structured subjects response.
var subjectSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"code":        {Type: genai.TypeString},
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"code", "title", "description"},
	},
}

// Subjects returns up to 8 curriculum subjects for a program, study level, and
// institution. This accessor uses the structured-output path; schema-valid
// entries with blank fields are still dropped.
func (c *Catalog) Subjects(ctx context.Context, program, level, university string) ([]Subject, Source) {
	program = strings.TrimSpace(program)
	level = strings.TrimSpace(level)
	university = strings.TrimSpace(university)
	subjects, source := fetch(ctx, c, "subjects", cacheKey("subjects", program, level, university), FallbackSubjects, 1,
		func(ctx context.Context) ([]Subject, error) {
			var parsed []Subject
			if err := c.gen.GenerateJSON(ctx, subjectsPrompt(program, level, university), subjectSchema, &parsed); err != nil {
				return nil, err
			}
			out := make([]Subject, 0, len(parsed))
			for _, s := range parsed {
				s.Code = strings.TrimSpace(s.Code)
				s.Title = strings.TrimSpace(s.Title)
				s.Description = strings.TrimSpace(s.Description)
				if s.Code == "" || s.Title == "" || s.Description == "" {
					continue
				}
				out = append(out, s)
			}
			return out, nil
		})
	return extract.Truncate(subjects, maxSubjects), source
}

// Books returns reading recommendations for a program and study level.
func (c *Catalog) Books(ctx context.Context, program, level string) ([]Book, Source) {
	program = strings.TrimSpace(program)
	level = strings.TrimSpace(level)
	return fetch(ctx, c, "books", cacheKey("books", program, level), FallbackBooks, 1,
		func(ctx context.Context) ([]Book, error) {
			text, citations, err := c.gen.GenerateGrounded(ctx, booksPrompt(program, level))
			if err != nil {
				return nil, err
			}
			return parseBooks(text, citations), nil
		})
}

// SearchBooks returns book search results for a free-text query.
func (c *Catalog) SearchBooks(ctx context.Context, query string) ([]Book, Source) {
	query = strings.TrimSpace(query)
	return fetch(ctx, c, "book_search", cacheKey("book_search", query), FallbackBooks, 1,
		func(ctx context.Context) ([]Book, error) {
			text, citations, err := c.gen.GenerateGrounded(ctx, searchBooksPrompt(query))
			if err != nil {
				return nil, err
			}
			return parseBooks(text, citations), nil
		})
}

func parseBooks(text string, citations []string) []Book {
	recs := extract.Records(text, bookRule)
	out := make([]Book, 0, len(recs))
	for _, r := range recs {
		title := extract.Field(r.Fields, 0)
		out = append(out, Book{
			Title:       title,
			Author:      extract.Field(r.Fields, 1),
			Description: extract.Field(r.Fields, 2),
			Link:        extract.Link(extract.Field(r.Fields, 3), citations, r.Segment, title+" book"),
		})
	}
	return out
}

// fetch applies the uniform guard shared by every accessor: demo short
// circuit, cache lookup, rate limit, retry on quota exhaustion, and wholesale
// fallback substitution on error or below-threshold parse.
func fetch[T any](
	ctx context.Context,
	c *Catalog,
	kind string,
	key string,
	fallback func() []T,
	minViable int,
	op func(context.Context) ([]T, error),
) ([]T, Source) {
	if c.demo {
		c.metrics.countRequest(kind, SourceDemo)
		return fallback(), SourceDemo
	}

	if cached, ok := cacheGet[[]T](c, key); ok {
		c.metrics.countRequest(kind, SourceLive)
		return cached, SourceLive
	}

	records, err := retry.Do(ctx, c.logger, c.policy, func(ctx context.Context) ([]T, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return op(ctx)
	})
	if err != nil {
		c.logger.Warn("live fetch failed, substituting fallback data",
			"kind", kind,
			"error", err,
		)
		c.metrics.countRequest(kind, SourceFallback)
		return fallback(), SourceFallback
	}
	if len(records) < minViable {
		c.logger.Warn("live fetch yielded too few records, substituting fallback data",
			"kind", kind,
			"parsed", len(records),
			"minViable", minViable,
		)
		c.metrics.countRequest(kind, SourceFallback)
		return fallback(), SourceFallback
	}

	cachePut(c, key, records)
	c.metrics.countRequest(kind, SourceLive)
	return records, SourceLive
}

func cacheKey(kind string, args ...string) string {
	parts := append([]string{kind}, args...)
	return strings.ToLower(strings.Join(parts, "\x1f"))
}

func cacheGet[T any](c *Catalog, key string) (T, bool) {
	var zero T
	if c.cache == nil {
		return zero, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func cachePut[T any](c *Catalog, key string, value T) {
	if c.cache == nil {
		return
	}
	c.cache.Add(key, value)
}
