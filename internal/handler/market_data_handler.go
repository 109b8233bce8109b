package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"
	"github.com/hamr-lab/backtest-service/internal/repository"
	"github.com/hamr-lab/backtest-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MarketDataHandler handles price and indicator series HTTP requests
type MarketDataHandler struct {
	marketDataService *service.MarketDataService
	logger            *zap.Logger
}

// NewMarketDataHandler creates a new market data handler
func NewMarketDataHandler(marketDataService *service.MarketDataService, logger *zap.Logger) *MarketDataHandler {
	return &MarketDataHandler{
		marketDataService: marketDataService,
		logger:            logger,
	}
}

// ListInstruments handles listing all known instruments
func (h *MarketDataHandler) ListInstruments(c *gin.Context) {
	instruments, err := h.marketDataService.ListInstruments(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list instruments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list instruments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"instruments": instruments, "count": len(instruments)})
}

// GetInstrument handles retrieving one instrument by symbol
func (h *MarketDataHandler) GetInstrument(c *gin.Context) {
	symbol := c.Param("symbol")

	instrument, err := h.marketDataService.GetInstrument(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Instrument not found"})
			return
		}
		h.logger.Error("Failed to get instrument", zap.Error(err), zap.String("symbol", symbol))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get instrument"})
		return
	}

	c.JSON(http.StatusOK, instrument)
}

// GetDailyCloses handles retrieving a close series
func (h *MarketDataHandler) GetDailyCloses(c *gin.Context) {
	symbol := c.Param("symbol")

	start, err := parseDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date, expected YYYY-MM-DD"})
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date, expected YYYY-MM-DD"})
		return
	}

	series, err := h.marketDataService.GetDailyCloses(c.Request.Context(), symbol, start, end)
	if err != nil {
		h.logger.Error("Failed to get daily closes", zap.Error(err), zap.String("symbol", symbol))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, series)
}

// GetDataRange handles retrieving the stored coverage for a symbol
func (h *MarketDataHandler) GetDataRange(c *gin.Context) {
	symbol := c.Param("symbol")

	rng, err := h.marketDataService.GetDataRange(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No data stored for symbol"})
			return
		}
		h.logger.Error("Failed to get data range", zap.Error(err), zap.String("symbol", symbol))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get data range"})
		return
	}

	c.JSON(http.StatusOK, rng)
}

// ImportDailyCloses handles storing a batch of close observations
func (h *MarketDataHandler) ImportDailyCloses(c *gin.Context) {
	var closes []model.DailyClose
	if err := c.ShouldBindJSON(&closes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.marketDataService.ImportDailyCloses(c.Request.Context(), closes)
	if err != nil {
		h.logger.Error("Failed to import daily closes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import daily closes"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"imported": count})
}

// ImportIndicatorValues handles storing a batch of indicator observations
func (h *MarketDataHandler) ImportIndicatorValues(c *gin.Context) {
	var values []model.IndicatorValue
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.marketDataService.ImportIndicatorValues(c.Request.Context(), values)
	if err != nil {
		h.logger.Error("Failed to import indicator values", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import indicator values"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"imported": count})
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
