package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/net"
)

// NetworkCollector собирает метрики сети
type NetworkCollector struct{}

// NewNetworkCollector создает новый Network collector
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{}
}

// Collect собирает счетчики ошибок по интерфейсам и соединения по состояниям
func (c *NetworkCollector) Collect(ctx context.Context) (valueobject.NetworkReading, error) {
	stats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return valueobject.NetworkReading{}, fmt.Errorf("failed to read network counters: %w", err)
	}

	reading := valueobject.NetworkReading{}
	for _, stat := range stats {
		if isLoopback(stat.Name) {
			continue
		}

		reading.RxErrors += stat.Errin
		reading.TxErrors += stat.Errout
		reading.RxDropped += stat.Dropin
		reading.TxDropped += stat.Dropout
		reading.Interfaces = append(reading.Interfaces, valueobject.InterfaceStats{
			Name:      stat.Name,
			BytesSent: stat.BytesSent,
			BytesRecv: stat.BytesRecv,
			ErrIn:     stat.Errin,
			ErrOut:    stat.Errout,
			DropIn:    stat.Dropin,
			DropOut:   stat.Dropout,
		})
	}

	// Таблица соединений требует прав; без нее счетчики ошибок остаются валидными
	if connections, err := net.ConnectionsWithContext(ctx, "inet"); err == nil {
		reading.Connections = countConnections(connections)
	}

	return reading, nil
}

func countConnections(connections []net.ConnectionStat) valueobject.ConnectionStats {
	stats := valueobject.ConnectionStats{Total: len(connections)}
	for _, conn := range connections {
		switch conn.Status {
		case "ESTABLISHED":
			stats.Established++
		case "LISTEN":
			stats.Listening++
		case "TIME_WAIT":
			stats.TimeWait++
		case "CLOSE_WAIT":
			stats.CloseWait++
		}
	}
	return stats
}

func isLoopback(name string) bool {
	return name == "lo" || strings.HasPrefix(name, "lo0") || strings.HasPrefix(name, "Loopback")
}
