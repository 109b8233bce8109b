package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hamr-lab/backtest-service/internal/engine"
	"github.com/hamr-lab/backtest-service/internal/model"
	"github.com/hamr-lab/backtest-service/internal/repository"
	"github.com/hamr-lab/backtest-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BacktestHandler handles backtest HTTP requests
type BacktestHandler struct {
	backtestService *service.BacktestService
	logger          *zap.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(backtestService *service.BacktestService, logger *zap.Logger) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
		logger:          logger,
	}
}

// CreateBacktest handles creating a new queued backtest run
func (h *BacktestHandler) CreateBacktest(c *gin.Context) {
	var request model.BacktestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := h.backtestService.CreateBacktest(c.Request.Context(), request)
	if err != nil {
		h.logger.Error("Failed to create backtest run",
			zap.Error(err),
			zap.String("strategy", string(request.Strategy)))
		respondSimulationError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  runID,
		"message": "Backtest created and queued for processing",
	})
}

// PreviewBacktest handles running a backtest synchronously without persistence
func (h *BacktestHandler) PreviewBacktest(c *gin.Context) {
	var request model.BacktestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.backtestService.Execute(c.Request.Context(), request)
	if err != nil {
		h.logger.Warn("Preview backtest failed",
			zap.Error(err),
			zap.String("strategy", string(request.Strategy)))
		respondSimulationError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBacktest handles retrieving a run by ID, with its result when completed
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, result, err := h.backtestService.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		h.logger.Error("Failed to get backtest run", zap.Error(err), zap.Int("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

// ListBacktests handles listing runs
func (h *BacktestHandler) ListBacktests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := h.backtestService.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list backtest runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// CompareBacktests handles running several named configurations side by side
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var request model.CompareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.backtestService.CompareBacktests(c.Request.Context(), request)
	if err != nil {
		h.logger.Warn("Comparison failed",
			zap.Error(err),
			zap.Int("entries", len(request.Entries)))
		respondSimulationError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetStreaks handles the monthly streak-conditional statistics
func (h *BacktestHandler) GetStreaks(c *gin.Context) {
	var request model.StreakRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.backtestService.Streaks(c.Request.Context(), request)
	if err != nil {
		h.logger.Warn("Streak analysis failed",
			zap.Error(err),
			zap.String("symbol", request.Symbol))
		respondSimulationError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// respondSimulationError maps the engine error taxonomy onto status codes
func respondSimulationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInsufficientHistory), errors.Is(err, engine.ErrEmptyWindow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backtest execution failed"})
	}
}
