package services

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/dartrag/internal/analysis"
	"github.com/fyrsmithlabs/dartrag/internal/embeddings"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/news"
	"github.com/fyrsmithlabs/dartrag/internal/pipeline"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
	"github.com/fyrsmithlabs/dartrag/internal/vectorstore"
)

// Registry provides access to all dartrag services.
type Registry interface {
	Index() *index.Service
	News() *news.Service
	Analyzer() *analysis.Analyzer
	Indexer() *pipeline.Indexer
	Querier() *pipeline.Querier
	Runner() *pipeline.TaskRunner
	Tasks() tasks.Store
	Janitor() *tasks.Janitor
	VectorStore() vectorstore.Store

	// Close stops background work and releases stores, newest first.
	Close(ctx context.Context) error
}

// Options configures the registry with service instances.
type Options struct {
	Index       *index.Service
	News        *news.Service
	Analyzer    *analysis.Analyzer
	Indexer     *pipeline.Indexer
	Querier     *pipeline.Querier
	Runner      *pipeline.TaskRunner
	Tasks       tasks.Store
	Janitor     *tasks.Janitor
	VectorStore vectorstore.Store
	Embeddings  *embeddings.Service
}

type registry struct {
	opts Options
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{opts: opts}
}

func (r *registry) Index() *index.Service          { return r.opts.Index }
func (r *registry) News() *news.Service            { return r.opts.News }
func (r *registry) Analyzer() *analysis.Analyzer   { return r.opts.Analyzer }
func (r *registry) Indexer() *pipeline.Indexer     { return r.opts.Indexer }
func (r *registry) Querier() *pipeline.Querier     { return r.opts.Querier }
func (r *registry) Runner() *pipeline.TaskRunner   { return r.opts.Runner }
func (r *registry) Tasks() tasks.Store             { return r.opts.Tasks }
func (r *registry) Janitor() *tasks.Janitor        { return r.opts.Janitor }
func (r *registry) VectorStore() vectorstore.Store { return r.opts.VectorStore }

func (r *registry) Close(ctx context.Context) error {
	var errs []error
	if r.opts.Janitor != nil {
		if err := r.opts.Janitor.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.opts.Runner != nil {
		if err := r.opts.Runner.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.opts.Tasks != nil {
		if err := r.opts.Tasks.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.opts.Embeddings != nil {
		if err := r.opts.Embeddings.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.opts.VectorStore != nil {
		if err := r.opts.VectorStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
