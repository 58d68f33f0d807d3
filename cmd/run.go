package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/denimozh/mathstutor-sub000/internal/config"
	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/llm"
	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/marking"
	"github.com/denimozh/mathstutor-sub000/internal/ocr"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

// deps is everything a command may need. Fields are nil when the
// corresponding feature is not configured.
type deps struct {
	cfg      config.Config
	log      *logger.Logger
	store    *store.Store
	provider llm.Provider
	corpus   *corpus.Corpus
	solver   *solver.Service
	marker   *marking.Service
	ocr      *ocr.Reader

	closers []func() error
}

type depsOpts struct {
	needLLM bool
	needOCR bool
}

// buildDeps opens the store and wires the pipeline services.
func buildDeps(cmd *cobra.Command, opts depsOpts) (*deps, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	d := &deps{cfg: cfg, log: log}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	d.store = st
	d.closers = append(d.closers, st.Close)

	c, err := corpus.Load()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load worked examples: %w", err)
	}
	d.corpus = c

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	switch {
	case err == nil:
		d.provider = provider
	case opts.needLLM:
		d.Close()
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	default:
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "AI features will be unavailable.")
	}

	solverCfg := solver.DefaultConfig()
	if cfg.LLM.MaxTokens > 0 {
		solverCfg.MaxTokens = cfg.LLM.MaxTokens
	}
	d.solver = solver.NewService(d.provider, c, nil, solverCfg, log)

	schemes, err := d.markSchemeRepo()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.marker = marking.NewService(d.provider, marking.NewMarkSchemes(schemes, d.provider, log), log)

	engine, err := d.ocrEngine(ctx)
	switch {
	case err != nil && opts.needOCR:
		d.Close()
		return nil, err
	case err != nil:
		log.Warn("ocr unavailable", "error", err)
	case engine != nil:
		d.ocr = ocr.NewReader(engine, log)
	case opts.needOCR:
		d.Close()
		return nil, errors.New("OCR is not configured: set MATHSTUTOR_OCR_PROVIDER to vision or mathpix")
	}
	return d, nil
}

// markSchemeRepo returns the SQL repo, fronted by Redis when configured.
func (d *deps) markSchemeRepo() (store.MarkSchemeRepo, error) {
	repo := d.store.MarkSchemeRepo()
	if d.cfg.RedisURL == "" {
		return repo, nil
	}
	rdb, err := store.NewRedisClient(d.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, rdb.Close)
	return store.NewCachedMarkSchemes(repo, rdb, 0, d.log), nil
}

func (d *deps) ocrEngine(ctx context.Context) (ocr.Engine, error) {
	switch d.cfg.OCR.Provider {
	case config.OCRVision:
		e, err := ocr.NewVisionEngine(ctx, d.cfg.OCR.CredentialsFile)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, e.Close)
		return e, nil
	case config.OCRMathpix:
		return ocr.NewMathpixEngine(d.cfg.OCR.Mathpix)
	case config.OCRNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown OCR provider %q", d.cfg.OCR.Provider)
	}
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.log.Warn("close failed", "error", err)
		}
	}
	d.closers = nil
	d.log.Sync()
}
