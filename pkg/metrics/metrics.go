// Package metrics 提供 Prometheus helper，包含策略执行相关的 counter/gauge/histogram
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 场内请求计数（端点、结果）
	VenueRequestsTotal *prometheus.CounterVec
	// 场内请求耗时
	VenueRequestDuration *prometheus.HistogramVec

	// 策略执行计数（类型、结果）
	StrategyExecutionsTotal *prometheus.CounterVec
	// 策略执行耗时（类型）
	StrategyExecutionDuration *prometheus.HistogramVec
	// 运行中的策略数
	StrategiesRunning prometheus.Gauge

	// 订单提交计数（方向、类型）
	OrdersPlacedTotal *prometheus.CounterVec
	// 订单失败计数
	OrderFailuresTotal prometheus.Counter
	// 网格闭环计数
	RoundTripsTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		VenueRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "venue_requests_total",
			Help:      "Total venue API requests",
		}, []string{"endpoint", "result"}),
		VenueRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "venue_request_duration_seconds",
			Help:      "Venue API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		StrategyExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "strategy_executions_total",
			Help:      "Total strategy executions",
		}, []string{"type", "result"}),
		StrategyExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "strategy_execution_duration_seconds",
			Help:      "Strategy execution duration in seconds",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 3600, 7200},
		}, []string{"type"}),
		StrategiesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "strategies_running",
			Help:      "Number of strategies currently running",
		}),

		OrdersPlacedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orders_placed_total",
			Help:      "Total orders placed at the venue",
		}, []string{"side", "type"}),
		OrderFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "order_failures_total",
			Help:      "Total order placements rejected or failed",
		}),
		RoundTripsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "round_trips_total",
			Help:      "Total completed grid round trips",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.VenueRequestsTotal,
		m.VenueRequestDuration,
		m.StrategyExecutionsTotal,
		m.StrategyExecutionDuration,
		m.StrategiesRunning,
		m.OrdersPlacedTotal,
		m.OrderFailuresTotal,
		m.RoundTripsTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string, logger *slog.Logger) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting prometheus http server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("prometheus http server stopped", "error", err)
		}
	}()
}
