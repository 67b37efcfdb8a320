// Package interfaces 策略执行引擎接口层
package interfaces

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/binancebot/internal/strategy/application"
	"github.com/wyfcoding/binancebot/internal/strategy/domain"
)

// HTTPHandler HTTP 接口处理器
type HTTPHandler struct {
	commandService *application.CommandService
	queryService   *application.QueryService
}

// NewHTTPHandler 创建 HTTP 处理器
func NewHTTPHandler(
	commandService *application.CommandService,
	queryService *application.QueryService,
) *HTTPHandler {
	return &HTTPHandler{
		commandService: commandService,
		queryService:   queryService,
	}
}

// RegisterRoutes 注册路由
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	strategies := r.Group("/strategies")
	{
		strategies.POST("/grid", h.CreateGridStrategy)
		strategies.POST("/grid/:id/execute", h.ExecuteGridStrategy)
		strategies.POST("/twap", h.ExecuteTWAP)
		strategies.GET("/:id", h.GetStrategy)
		strategies.GET("/:id/report", h.GetStrategyReport)
		strategies.GET("", h.ListStrategies)
	}
	orders := r.Group("/orders")
	{
		orders.POST("/oco", h.PlaceOCO)
		orders.GET("/open", h.GetOpenOrders)
		orders.GET("/:id/monitor", h.MonitorOrder)
	}
	market := r.Group("/market")
	{
		market.GET("/price", h.GetSymbolPrice)
		market.GET("/klines", h.GetKlines)
	}
}

// statusFromError 参数错误映射为 400，其余归为 502/500
func statusFromError(err error) int {
	switch {
	case domain.IsParameterError(err):
		return http.StatusBadRequest
	case domain.IsVenueError(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// CreateGridStrategyRequest 创建网格策略请求
type CreateGridStrategyRequest struct {
	UserID          uint64          `json:"user_id" binding:"required"`
	Symbol          string          `json:"symbol" binding:"required"`
	GridType        string          `json:"grid_type" binding:"required"`
	UpperPrice      decimal.Decimal `json:"upper_price"`
	LowerPrice      decimal.Decimal `json:"lower_price"`
	GridNumber      int             `json:"grid_number" binding:"required"`
	TotalInvestment decimal.Decimal `json:"total_investment" binding:"required"`
	BasePrice       decimal.Decimal `json:"base_price"`
	Multiplier      decimal.Decimal `json:"multiplier"`
}

// CreateGridStrategy 创建网格策略，返回冻结的规划预览
func (h *HTTPHandler) CreateGridStrategy(c *gin.Context) {
	var req CreateGridStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.CreateGridStrategyCommand{
		UserID:          req.UserID,
		Symbol:          req.Symbol,
		GridType:        req.GridType,
		UpperPrice:      req.UpperPrice,
		LowerPrice:      req.LowerPrice,
		GridNumber:      req.GridNumber,
		TotalInvestment: req.TotalInvestment,
		BasePrice:       req.BasePrice,
		Multiplier:      req.Multiplier,
	}

	id, plan, err := h.commandService.CreateGridStrategy(c.Request.Context(), cmd)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"strategy_id": id, "plan": plan})
}

// ExecuteGridStrategyRequest 执行网格策略请求
type ExecuteGridStrategyRequest struct {
	MaxActiveOrders int `json:"max_active_orders"`
	WindowSeconds   int `json:"window_seconds"`
	PollSeconds     int `json:"poll_seconds"`
}

// ExecuteGridStrategy 同步执行一次网格运行
func (h *HTTPHandler) ExecuteGridStrategy(c *gin.Context) {
	var req ExecuteGridStrategyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cmd := application.ExecuteGridStrategyCommand{
		StrategyID:      c.Param("id"),
		MaxActiveOrders: req.MaxActiveOrders,
		Window:          time.Duration(req.WindowSeconds) * time.Second,
		PollInterval:    time.Duration(req.PollSeconds) * time.Second,
	}

	result, err := h.commandService.ExecuteGridStrategy(c.Request.Context(), cmd)
	if err != nil && result == nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExecuteTWAPRequest TWAP 执行请求
type ExecuteTWAPRequest struct {
	UserID          uint64          `json:"user_id" binding:"required"`
	Symbol          string          `json:"symbol" binding:"required"`
	Side            string          `json:"side" binding:"required"`
	TotalQuantity   decimal.Decimal `json:"total_quantity" binding:"required"`
	DurationSeconds int             `json:"duration_seconds" binding:"required"`
	Chunks          int             `json:"chunks" binding:"required"`
	OrderType       string          `json:"order_type"`
	PriceOffset     decimal.Decimal `json:"price_offset"`
	MaxSlippage     decimal.Decimal `json:"max_slippage"`
	FillWaitSeconds int             `json:"fill_wait_seconds"`
	Jitter          *bool           `json:"jitter"` // 缺省开启
}

// ExecuteTWAP 创建并同步执行一次 TWAP 运行
func (h *HTTPHandler) ExecuteTWAP(c *gin.Context) {
	var req ExecuteTWAPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = string(domain.OrderTypeMarket)
	}
	jitter := true
	if req.Jitter != nil {
		jitter = *req.Jitter
	}

	cmd := application.ExecuteTWAPCommand{
		UserID:        req.UserID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		TotalQuantity: req.TotalQuantity,
		Duration:      time.Duration(req.DurationSeconds) * time.Second,
		Chunks:        req.Chunks,
		OrderType:     orderType,
		PriceOffset:   req.PriceOffset,
		MaxSlippage:   req.MaxSlippage,
		FillWait:      time.Duration(req.FillWaitSeconds) * time.Second,
		Jitter:        jitter,
	}

	id, result, err := h.commandService.ExecuteTWAP(c.Request.Context(), cmd)
	if err != nil && result == nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"strategy_id": id, "result": result})
}

// PlaceOCORequest OCO 下单请求。
// quantity 与 quote_quantity 二选一，后者按止盈限价折算为基础币数量。
type PlaceOCORequest struct {
	Symbol               string          `json:"symbol" binding:"required"`
	Side                 string          `json:"side" binding:"required"`
	Quantity             decimal.Decimal `json:"quantity"`
	QuoteQuantity        decimal.Decimal `json:"quote_quantity"`
	Price                decimal.Decimal `json:"price" binding:"required"`
	StopPrice            decimal.Decimal `json:"stop_price" binding:"required"`
	StopLimitPrice       decimal.Decimal `json:"stop_limit_price" binding:"required"`
	StopLimitTimeInForce string          `json:"stop_limit_time_in_force"`
}

// PlaceOCO 提交一组 OCO 订单
func (h *HTTPHandler) PlaceOCO(c *gin.Context) {
	var req PlaceOCORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.commandService.PlaceOCO(c.Request.Context(), application.PlaceOCOCommand{
		Symbol:               req.Symbol,
		Side:                 req.Side,
		Quantity:             req.Quantity,
		QuoteQuantity:        req.QuoteQuantity,
		Price:                req.Price,
		StopPrice:            req.StopPrice,
		StopLimitPrice:       req.StopLimitPrice,
		StopLimitTimeInForce: req.StopLimitTimeInForce,
	})
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, group)
}

// GetStrategy 获取策略
func (h *HTTPHandler) GetStrategy(c *gin.Context) {
	strategy, err := h.queryService.GetStrategy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, strategy)
}

// GetStrategyReport 获取策略运行报告
func (h *HTTPHandler) GetStrategyReport(c *gin.Context) {
	strategy, err := h.queryService.GetStrategy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if strategy.ResultJSON == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(strategy.ResultJSON))
}

// ListStrategies 分页列出用户策略
func (h *HTTPHandler) ListStrategies(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	strategies, total, err := h.queryService.ListStrategies(c.Request.Context(), userID, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "strategies": strategies})
}

// GetOpenOrders 查询在场订单
func (h *HTTPHandler) GetOpenOrders(c *gin.Context) {
	orders, err := h.queryService.GetOpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// MonitorOrder 跟踪订单直至终态或窗口耗尽。
// interval_seconds/timeout_seconds 未指定时使用服务级默认值。
func (h *HTTPHandler) MonitorOrder(c *gin.Context) {
	interval, _ := strconv.Atoi(c.DefaultQuery("interval_seconds", "0"))
	timeout, _ := strconv.Atoi(c.DefaultQuery("timeout_seconds", "0"))

	snap, err := h.queryService.MonitorOrder(
		c.Request.Context(),
		c.Query("symbol"),
		c.Param("id"),
		time.Duration(interval)*time.Second,
		time.Duration(timeout)*time.Second,
	)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetSymbolPrice 查询最新成交价
func (h *HTTPHandler) GetSymbolPrice(c *gin.Context) {
	price, err := h.queryService.GetSymbolPrice(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": c.Query("symbol"), "price": price})
}

// GetKlines 查询 K 线
func (h *HTTPHandler) GetKlines(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	klines, err := h.queryService.GetKlines(
		c.Request.Context(),
		c.Query("symbol"),
		c.DefaultQuery("interval", "1m"),
		limit,
	)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, klines)
}
