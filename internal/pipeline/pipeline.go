package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Middleware processes an article and returns the (possibly modified) article.
// Return nil to reject the article.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an article. Return nil to reject it.
	Process(article *types.Article) (*types.Article, error)
}

// StageError reports the middleware that failed.
type StageError struct {
	Stage string
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates an empty Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the normalization chain applied to every extracted article.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&NormalizeTextMiddleware{})
	p.Use(&KeywordsMiddleware{})
	p.Use(&RequireTitleMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order. A nil article
// with a nil error means a stage rejected it; the stage name is returned.
func (p *Pipeline) Process(article *types.Article) (*types.Article, string, error) {
	current := article

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, mw.Name(), &StageError{Stage: mw.Name(), URL: article.URL, Err: err}
		}
		if result == nil {
			p.logger.Debug("article rejected", "stage", mw.Name(), "url", article.URL)
			return nil, mw.Name(), nil
		}
		current = result
	}

	return current, "", nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
