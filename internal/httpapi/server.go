// Package httpapi exposes the solving, marking and OCR pipelines over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/marking"
	"github.com/denimozh/mathstutor-sub000/internal/ocr"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

type Solver interface {
	Solve(ctx context.Context, req solver.Request) (*solver.Result, error)
}

type Marker interface {
	Mark(ctx context.Context, req marking.MarkRequest) (*marking.Result, error)
	Analyze(ctx context.Context, req marking.AnalyzeRequest) (*marking.Analysis, error)
}

type Recognizer interface {
	Read(ctx context.Context, image []byte) ocr.Result
}

// Deps are the collaborators behind the routes. Questions and OCR may be
// nil; persistence is then skipped and /api/ocr reports 503.
type Deps struct {
	Solver    Solver
	Marker    Marker
	OCR       Recognizer
	Questions store.QuestionRepo
	Corpus    *corpus.Corpus
	Log       *logger.Logger

	JWTSecret   string
	CORSOrigins []string
	ServiceName string
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	d.Log = logger.OrNop(d.Log)
	if d.ServiceName == "" {
		d.ServiceName = "mathstutor"
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.MaxMultipartMemory = ocr.MaxImageBytes
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(requestID())
	r.Use(requestLogger(d.Log))
	r.Use(corsMiddleware(d.CORSOrigins))

	r.GET("/healthcheck", h.health)

	api := r.Group("/api")
	api.GET("/examples", h.listExamples)

	protected := api.Group("")
	protected.Use(requireAuth(d.JWTSecret))
	protected.POST("/solve", h.solve)
	protected.POST("/mark", h.mark)
	protected.POST("/analyze", h.analyze)
	protected.POST("/ocr", h.recognize)
	protected.POST("/questions", h.createQuestion)
	protected.GET("/questions/:id", h.getQuestion)

	return r
}

// Serve runs the router on addr until ctx is cancelled, then drains
// in-flight requests.
func Serve(ctx context.Context, addr string, router http.Handler, log *logger.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
