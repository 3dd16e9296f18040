package cloudwatch

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	applicationPort "github.com/dreschagin/sre-monitor/internal/application/port"
)

func TestConvertToLogEvent(t *testing.T) {
	p := &LogsPublisher{
		logGroupName:  "/aws/test",
		logStreamName: "test-stream",
	}

	timestamp := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelInfo,
		Message:   "Test message",
		Fields: map[string]interface{}{
			"user_id": "12345",
			"action":  "login",
			"count":   42,
		},
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	// Verify timestamp
	expectedTimestamp := timestamp.UnixMilli()
	if event.Timestamp == nil || *event.Timestamp != expectedTimestamp {
		t.Errorf("Expected Timestamp=%d, got %v", expectedTimestamp, event.Timestamp)
	}

	// Verify message is valid JSON
	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(*event.Message), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}

	// Verify structured fields
	if logData["level"] != string(applicationPort.LogLevelInfo) {
		t.Errorf("Expected level=INFO, got %v", logData["level"])
	}

	if logData["message"] != "Test message" {
		t.Errorf("Expected message='Test message', got %v", logData["message"])
	}

	fields, ok := logData["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected fields to be a map")
	}

	if fields["user_id"] != "12345" {
		t.Errorf("Expected user_id=12345, got %v", fields["user_id"])
	}

	if fields["action"] != "login" {
		t.Errorf("Expected action=login, got %v", fields["action"])
	}

	// Note: JSON numbers are float64
	if count, ok := fields["count"].(float64); !ok || count != 42 {
		t.Errorf("Expected count=42, got %v", fields["count"])
	}
}

func TestConvertToLogEvent_NoFields(t *testing.T) {
	p := &LogsPublisher{
		logGroupName:  "/aws/test",
		logStreamName: "test-stream",
	}

	timestamp := time.Now()
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelError,
		Message:   "Error occurred",
		Fields:    nil,
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(*event.Message), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}

	if logData["level"] != string(applicationPort.LogLevelError) {
		t.Errorf("Expected level=ERROR, got %v", logData["level"])
	}

	if logData["message"] != "Error occurred" {
		t.Errorf("Expected message='Error occurred', got %v", logData["message"])
	}
}

func TestConvertToLogEvent_Truncation(t *testing.T) {
	p := &LogsPublisher{
		logGroupName:  "/aws/test",
		logStreamName: "test-stream",
	}

	// Create a very large message that exceeds CloudWatch limit
	largeMessage := string(make([]byte, maxLogEventSize+1000))

	timestamp := time.Now()
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelInfo,
		Message:   largeMessage,
		Fields:    nil,
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	// Verify message was truncated
	messageLen := len(*event.Message)
	if messageLen > maxLogEventSize {
		t.Errorf("Expected message to be truncated to %d bytes, got %d", maxLogEventSize, messageLen)
	}

	// Verify truncation marker
	if messageLen >= 3 {
		lastThree := (*event.Message)[messageLen-3:]
		if lastThree != "..." {
			t.Error("Expected truncation marker '...' at end of message")
		}
	}
}

type fakeLogs struct {
	mu          sync.Mutex
	batches     [][]types.InputLogEvent
	tokens      []*string
	rejectToken bool
}

func (f *fakeLogs) PutLogEvents(_ context.Context, params *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens = append(f.tokens, params.SequenceToken)
	if f.rejectToken {
		f.rejectToken = false
		return nil, &types.InvalidSequenceTokenException{ExpectedSequenceToken: aws.String("expected")}
	}
	f.batches = append(f.batches, params.LogEvents)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: aws.String("next")}, nil
}

func (f *fakeLogs) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return nil, &types.ResourceAlreadyExistsException{}
}

func (f *fakeLogs) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func newTestLogsPublisher(client cloudWatchLogsAPI, bufferSize int) *LogsPublisher {
	return newLogsPublisher(client, LogsPublisherConfig{
		LogGroupName:  "/sremon/test",
		LogStreamName: "test-stream",
		Region:        "us-east-1",
		BufferSize:    bufferSize,
	})
}

func TestLogsConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		config    LogsPublisherConfig
		expectErr bool
	}{
		{"valid config", LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s", Region: "us-east-1"}, false},
		{"missing log group", LogsPublisherConfig{LogStreamName: "s", Region: "us-east-1"}, true},
		{"missing log stream", LogsPublisherConfig{LogGroupName: "/aws/test", Region: "us-east-1"}, true},
		{"missing region", LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.normalize()
			if (err != nil) != tt.expectErr {
				t.Fatalf("normalize() error = %v, expectErr %v", err, tt.expectErr)
			}
			if err == nil && (cfg.BufferSize != 50 || cfg.FlushInterval != 5*time.Second) {
				t.Errorf("defaults not applied: %+v", cfg)
			}
		})
	}
}

func TestFlushSendsChronologicalBatch(t *testing.T) {
	client := &fakeLogs{}
	p := newTestLogsPublisher(client, 50)

	now := time.Now()
	entries := []applicationPort.LogEntry{
		{Timestamp: now.Add(5 * time.Second), Level: applicationPort.LogLevelInfo, Message: "Third"},
		{Timestamp: now, Level: applicationPort.LogLevelInfo, Message: "First"},
		{Timestamp: now.Add(2 * time.Second), Level: applicationPort.LogLevelInfo, Message: "Second"},
	}
	if err := p.PublishBatch(context.Background(), entries); err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if len(client.batches) != 1 || len(client.batches[0]) != 3 {
		t.Fatalf("unexpected batches: %d", len(client.batches))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if !strings.Contains(aws.ToString(client.batches[0][i].Message), want) {
			t.Errorf("event %d = %s, want %s", i, aws.ToString(client.batches[0][i].Message), want)
		}
	}
}

func TestFlushRetriesWithExpectedSequenceToken(t *testing.T) {
	client := &fakeLogs{rejectToken: true}
	p := newTestLogsPublisher(client, 50)

	_ = p.Publish(context.Background(), applicationPort.LogEntry{Timestamp: time.Now(), Level: applicationPort.LogLevelWarn, Message: "x"})
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if len(client.tokens) != 2 || aws.ToString(client.tokens[1]) != "expected" {
		t.Errorf("tokens = %v", client.tokens)
	}
	if aws.ToString(p.sequenceToken) != "next" {
		t.Errorf("sequenceToken = %v", aws.ToString(p.sequenceToken))
	}
}

func TestPublishDoesNotBlockOrSend(t *testing.T) {
	client := &fakeLogs{}
	p := newTestLogsPublisher(client, 2)

	for i := 0; i < 100; i++ {
		_ = p.Publish(context.Background(), applicationPort.LogEntry{Timestamp: time.Now(), Message: "m"})
	}

	if len(client.batches) != 0 {
		t.Error("Publish must not call CloudWatch directly")
	}
	// 2 * maxPendingMultiplier kept, rest dropped
	if got := p.Dropped(); got != 60 {
		t.Errorf("Dropped() = %d, want 60", got)
	}
	select {
	case <-p.flushCh:
	default:
		t.Error("expected a flush signal")
	}
}

func TestChunkEvents(t *testing.T) {
	big := strings.Repeat("x", 300000)
	events := []types.InputLogEvent{
		{Message: aws.String(big)},
		{Message: aws.String(big)},
		{Message: aws.String(big)},
		{Message: aws.String(big)},
		{Message: aws.String("small")},
	}

	chunks := chunkEvents(events)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 3 || len(chunks[1]) != 2 {
		t.Errorf("chunk sizes = %d, %d", len(chunks[0]), len(chunks[1]))
	}
}

func TestEnsureLogGroupAndStreamIgnoresExisting(t *testing.T) {
	p := newTestLogsPublisher(&fakeLogs{}, 10)
	if err := p.ensureLogGroupAndStream(context.Background()); err != nil {
		t.Errorf("ensureLogGroupAndStream() error = %v", err)
	}
}
