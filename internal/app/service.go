package app

import (
	"errors"

	"srtvoice/internal/cache"
	"srtvoice/internal/fitting"
	"srtvoice/internal/speech"
	"srtvoice/internal/storage"
	"srtvoice/pkg/config"
)

type Service struct {
	cfg       *config.Config
	tts       speech.Provider
	estimator fitting.Estimator
	rewriter  Rewriter
	tool      AudioTool
	storage   *storage.LocalStorage
	publisher storage.Publisher
	cache     *cache.Store
	names     ComponentNames
	closers   []func() error
}

// ComponentNames describe the wired capabilities in the run report.
type ComponentNames struct {
	Synthesizer string
	Estimator   string
	Shortener   string
}

// ServiceOptions leaves TTS, Estimator, Rewriter, Publisher and Cache nil to
// disable them.
type ServiceOptions struct {
	Config    *config.Config
	TTS       speech.Provider
	Estimator fitting.Estimator
	Rewriter  Rewriter
	Tool      AudioTool
	Storage   *storage.LocalStorage
	Publisher storage.Publisher
	Cache     *cache.Store
	Names     ComponentNames
	Closers   []func() error
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:       opts.Config,
		tts:       opts.TTS,
		estimator: opts.Estimator,
		rewriter:  opts.Rewriter,
		tool:      opts.Tool,
		storage:   opts.Storage,
		publisher: opts.Publisher,
		cache:     opts.Cache,
		names:     opts.Names,
		closers:   opts.Closers,
	}
}

func (s *Service) Config() *config.Config         { return s.cfg }
func (s *Service) TTS() speech.Provider           { return s.tts }
func (s *Service) Estimator() fitting.Estimator   { return s.estimator }
func (s *Service) Rewriter() Rewriter             { return s.rewriter }
func (s *Service) Tool() AudioTool                { return s.tool }
func (s *Service) Storage() *storage.LocalStorage { return s.storage }
func (s *Service) Publisher() storage.Publisher   { return s.publisher }
func (s *Service) Cache() *cache.Store            { return s.cache }

func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
