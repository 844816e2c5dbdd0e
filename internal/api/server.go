package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"war-api-analyzer/internal/archive"
	"war-api-analyzer/internal/classfile"
	"war-api-analyzer/internal/config"
	"war-api-analyzer/internal/domain"
	"war-api-analyzer/internal/mapping"
	"war-api-analyzer/internal/mutation"
	"war-api-analyzer/internal/report"
	"war-api-analyzer/internal/usecases"
	"war-api-analyzer/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisRequest is the body of the analyze endpoints.
type AnalysisRequest struct {
	WarFilePath string `json:"war_file_path" binding:"required"`
}

// Server exposes the analyzer over HTTP. Each request builds its own
// pipeline, so concurrent analyses share nothing.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(s.logger))
	router.Use(AuthMiddleware(s.cfg.Server.APIKey, s.logger))

	api := router.Group("/api")
	api.POST("/analyze", s.handleAnalyzeJSON)
	api.POST("/analyze/csv", s.handleAnalyzeCSV)
	api.POST("/analyze/html", s.handleAnalyzeHTML)
	api.POST("/analyze/summary", s.handleAnalyzeSummary)
	api.GET("/health", s.handleHealth)
	api.GET("/docs", s.handleDocs)

	return router
}

// Run starts the HTTP server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("Starting analysis API", zap.String("listen_addr", s.cfg.Server.ListenAddr))
	return s.Router().Run(s.cfg.Server.ListenAddr)
}

// analyze runs one full analysis with a per-request pipeline and timeout.
func (s *Server) analyze(warFilePath string) (*domain.Report, error) {
	analysisID := uuid.NewString()
	logger := s.logger.With(zap.String("analysis_id", analysisID))

	timeout := time.Duration(s.cfg.Analysis.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	walker := archive.NewWalker(logger)
	cache := classfile.NewCache()
	analyzer := mapping.NewAnalyzer(classfile.NewDecoder(logger), cache, logger)
	assembler := report.NewAssembler(mutation.NewClassifier(logger), validation.NewCollector(logger), logger)

	useCase := usecases.NewAnalyzeUseCase(ctx, walker, analyzer, assembler, cache, s.cfg.Analysis.DecodeWorkers, logger)
	return useCase.Execute(warFilePath)
}

func (s *Server) handleAnalyzeJSON(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalyzeCSV(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}

	renderer := report.NewRenderer(s.cfg.Output.Title)
	data, err := renderer.RenderCSV(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (s *Server) handleAnalyzeHTML(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}

	renderer := report.NewRenderer(s.cfg.Output.Title)
	data, err := renderer.RenderHTML(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

func (s *Server) handleAnalyzeSummary(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}

	renderer := report.NewRenderer(s.cfg.Output.Title)
	c.String(http.StatusOK, renderer.RenderSummary(result))
}

// runAnalysis binds the request, runs the analysis, and writes the error
// response on failure.
func (s *Server) runAnalysis(c *gin.Context) (*domain.Report, bool) {
	var request AnalysisRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "war_file_path is required"})
		return nil, false
	}

	result, err := s.analyze(request.WarFilePath)
	if err != nil {
		s.writeAnalysisError(c, err)
		return nil, false
	}
	return result, true
}

func (s *Server) writeAnalysisError(c *gin.Context, err error) {
	var openErr *domain.ArchiveOpenError

	switch {
	case errors.Is(err, domain.ErrArchiveNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &openErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAnalysisTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAnalysisCancelled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"service": "war-api-analyzer",
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleDocs(c *gin.Context) {
	const docs = `WAR File API Analyzer

POST /api/analyze          JSON report        body: {"war_file_path": "/path/to/app.war"}
POST /api/analyze/csv      CSV report         same body
POST /api/analyze/html     HTML report        same body
POST /api/analyze/summary  plain-text rollup  same body
GET  /api/health           service health
GET  /api/docs             this document

The analyzer inspects the archive offline; no class is executed. The JSON
report lists every HTTP endpoint with its URL pattern, verb, declaring
class and method, a state-mutation verdict, and the validation
constraints found on the handler and its parameters.
`
	c.String(http.StatusOK, docs)
}
