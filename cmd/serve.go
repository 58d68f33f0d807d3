package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/denimozh/mathstutor-sub000/internal/httpapi"
	"github.com/denimozh/mathstutor-sub000/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		d, err := buildDeps(cmd, depsOpts{needLLM: true})
		if err != nil {
			return err
		}
		defer d.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			d.cfg.Addr = addr
		}
		if d.cfg.LogMode == "prod" || d.cfg.LogMode == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		if d.cfg.JWTSecret == "" {
			d.log.Warn("SUPABASE_JWT_SECRET is not set, API routes are unauthenticated")
		}

		shutdown, err := observability.Init(ctx, observability.Config{
			Enabled:     d.cfg.OTelEnabled,
			ServiceName: "mathstutor",
			Version:     resolvedVersion(),
			SampleRatio: observability.SampleRatioFromEnv(),
		}, d.log)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown(context.Background())

		deps := httpapi.Deps{
			Solver:      d.solver,
			Marker:      d.marker,
			Questions:   d.store.QuestionRepo(),
			Corpus:      d.corpus,
			Log:         d.log,
			JWTSecret:   d.cfg.JWTSecret,
			CORSOrigins: d.cfg.CORSOrigins,
		}
		if d.ocr != nil {
			deps.OCR = d.ocr
		}
		return httpapi.Serve(ctx, d.cfg.Addr, httpapi.NewRouter(deps), d.log)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides MATHSTUTOR_ADDR)")
}
