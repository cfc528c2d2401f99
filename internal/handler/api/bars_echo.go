package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	models "BarFlow/internal/domain/models"
	"BarFlow/internal/usecase"
	"BarFlow/pkg/cache"
	xhttp "BarFlow/pkg/http"
	xlogger "BarFlow/pkg/logger"

	"github.com/labstack/echo/v4"
)

// barsCacheTTL bounds staleness of the /api/bars read path. Live buckets
// mutate on every trade, so this stays short.
const barsCacheTTL = 5 * time.Second

// BarsEchoHandler exposes the bar query and subscription API over Echo.
type BarsEchoHandler struct {
	logger *xlogger.Logger
	client *usecase.StreamClient
	cache  cache.Service
}

func NewBarsEchoHandler(logger *xlogger.Logger, client *usecase.StreamClient, c cache.Service) *BarsEchoHandler {
	return &BarsEchoHandler{logger: logger, client: client, cache: c}
}

func (h *BarsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/bars", h.Bars)
	g.GET("/symbols", h.Symbols)
	g.POST("/subscriptions", h.Subscribe)
	g.DELETE("/subscriptions", h.Unsubscribe)
	g.DELETE("/consumers/:id", h.RemoveConsumer)
	g.POST("/backfill", h.Backfill)
}

func (h *BarsEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := barsCacheKey(req)

	var cached []usecase.BarSnapshot
	if err := h.cacheGet(ctx, key, &cached); err == nil {
		return xhttp.SuccessResponse(c, cached)
	}

	bars, err := h.client.GetIntradayBars(ctx, req.Symbol, req.Interval, req.Limit)
	if err != nil {
		h.logger.Error("get bars failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if err := h.cacheSet(ctx, key, bars); err != nil {
		h.logger.Debug("bars cache set failed", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, bars)
}

func (h *BarsEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.client.ActiveSymbols())
}

func (h *BarsEchoHandler) Subscribe(c echo.Context) error {
	req := &models.SubscriptionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.client.Subscribe(c.Request().Context(), req.Symbols, req.ConsumerID); err != nil {
		h.logger.Error("subscribe failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{
		"consumer_id": req.ConsumerID,
		"symbols":     req.Symbols,
	})
}

func (h *BarsEchoHandler) Unsubscribe(c echo.Context) error {
	req := &models.SubscriptionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.client.Unsubscribe(c.Request().Context(), req.Symbols, req.ConsumerID); err != nil {
		h.logger.Error("unsubscribe failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *BarsEchoHandler) RemoveConsumer(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "consumer id is required")
	}

	if err := h.client.RemoveConsumer(c.Request().Context(), id); err != nil {
		h.logger.Error("remove consumer failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *BarsEchoHandler) Backfill(c echo.Context) error {
	req := &models.BackfillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	n, err := h.client.Backfill(
		c.Request().Context(),
		req.Symbol,
		req.Interval,
		time.Unix(req.From, 0).UTC(),
		time.Unix(req.To, 0).UTC(),
	)
	if err != nil {
		h.logger.Error("backfill failed",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":   strings.ToUpper(req.Symbol),
		"interval": req.Interval,
		"inserted": n,
	})
}

func barsCacheKey(req *models.BarsRequest) string {
	return fmt.Sprintf("bars:%s:%s:%d", strings.ToUpper(req.Symbol), req.Interval, req.Limit)
}

func (h *BarsEchoHandler) cacheGet(ctx context.Context, key string, dest interface{}) error {
	if h.cache == nil {
		return cache.ErrCacheMiss
	}
	err := h.cache.Get(ctx, key, dest)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Debug("bars cache get failed", xlogger.Error(err))
	}
	return err
}

func (h *BarsEchoHandler) cacheSet(ctx context.Context, key string, value interface{}) error {
	if h.cache == nil {
		return nil
	}
	return h.cache.Set(ctx, key, value, barsCacheTTL)
}
