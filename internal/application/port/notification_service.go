package port

import (
	"context"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
)

// NotificationIntent описывает уведомление, построенное из анализа
type NotificationIntent struct {
	Channel      string
	SeverityBand string
	Message      string
	Recipients   []string
	Report       *dto.CycleReportDTO
}

// NotificationService определяет интерфейс отправки уведомлений (Port)
// Реализации: webhook (Slack-совместимый), WebSocket Hub
type NotificationService interface {
	// Name возвращает имя канала доставки для логов и метрик
	Name() string

	// Notify доставляет уведомление
	Notify(ctx context.Context, intent NotificationIntent) error
}

// LiveFeed рассылает результаты циклов подключенным клиентам (Port)
type LiveFeed interface {
	// BroadcastCycle отправляет отчет цикла всем клиентам
	BroadcastCycle(report *dto.CycleReportDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
