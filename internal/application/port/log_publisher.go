package port

import (
	"context"
	"fmt"
	"time"
)

// LogLevel уровень записи журнала во внешнем приемнике.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry структурированная запись журнала для внешнего приемника.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// NewLogEntry собирает запись из пар ключ/значение логгера.
// Непарный последний аргумент отбрасывается.
func NewLogEntry(ts time.Time, level LogLevel, msg string, kv []interface{}) LogEntry {
	entry := LogEntry{Timestamp: ts.UTC(), Level: level, Message: msg}
	if len(kv) < 2 {
		return entry
	}

	entry.Fields = make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		entry.Fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return entry
}

// LogPublisher приемник журнала (CloudWatch Logs).
// Publish не должен блокироваться на сетевом вызове: логгер вызывает его
// синхронно на каждой записи.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch учитывает лимиты приемника на размер пакета.
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush отправляет буфер; вызывается при остановке.
	Flush(ctx context.Context) error
}
