// Package metrics - счётчики Prometheus по жизненному циклу заказов, споров и сделок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_orders_created_total",
			Help: "Количество созданных заказов",
		},
		[]string{"currency", "escrow"},
	)

	OrdersCreatedAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_orders_created_amount_cents_total",
			Help: "Сумма созданных заказов в минимальных единицах валюты",
		},
		[]string{"currency"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_order_transitions_total",
			Help: "Переходы статусов заказа",
		},
		[]string{"from", "to"},
	)

	// ReversalsTotal: outcome = applied | skipped | failed
	ReversalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_reversals_total",
			Help: "Запуски протокола возврата по спорам",
		},
		[]string{"outcome"},
	)

	DisputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_disputes_total",
			Help: "События по спорам",
		},
		[]string{"event", "resolution"},
	)

	TimerExtensionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_trade_timer_extensions_total",
			Help: "Продления таймера сделки: applied (продавец) и requested (покупатель)",
		},
		[]string{"mode"},
	)

	TradesExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapmarket_trades_expired_total",
			Help: "Сделки, автоматически отменённые по таймеру",
		},
	)

	TransactionRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_tx_retries_total",
			Help: "Повторы транзакций после конфликта параллельного изменения",
		},
		[]string{"operation"},
	)

	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_notification_failures_total",
			Help: "Неудачные доставки уведомлений",
		},
		[]string{"sink"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmarket_http_requests_total",
			Help: "HTTP запросы",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapmarket_http_request_duration_seconds",
			Help:    "Длительность HTTP запросов",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "swapmarket_ws_connections",
			Help: "Открытые WebSocket соединения",
		},
	)
)
