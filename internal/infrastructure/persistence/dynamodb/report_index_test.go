package dynamodb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/sre-monitor/internal/application/port"
)

type fakeDynamo struct {
	items     []map[string]types.AttributeValue
	lastQuery *dynamodb.QueryInput
	lastKey   map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQuery = params
	return &dynamodb.QueryOutput{Items: f.items, LastEvaluatedKey: f.lastKey}, nil
}

func sampleRecord(at time.Time) port.ReportMetadata {
	return port.ReportMetadata{
		CycleID:       "cycle-1",
		Host:          "web-1",
		OverallStatus: "CRIT",
		S3Key:         "reports/web-1/2026/01/02/x.json",
		URL:           "https://example/x.json",
		SizeBytes:     2048,
		IssueCount:    2,
		WarningCount:  1,
		CapturedAt:    at,
		ExpiresAt:     at.Add(30 * 24 * time.Hour),
	}
}

func TestPutAndListRoundTrip(t *testing.T) {
	client := &fakeDynamo{}
	index := newReportIndex(client, Config{TableName: "reports", StrongReads: true})
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := index.Put(context.Background(), sampleRecord(at)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	item := client.items[0]
	if pk := item[attrPK].(*types.AttributeValueMemberS).Value; pk != "HOST#web-1" {
		t.Errorf("PK = %s", pk)
	}
	if gsi := item[attrGSI1PK].(*types.AttributeValueMemberS).Value; gsi != "HOST#web-1#STATUS#CRIT" {
		t.Errorf("GSI1PK = %s", gsi)
	}
	if sk := item[attrSK].(*types.AttributeValueMemberS).Value; !strings.HasPrefix(sk, "TS#1767323045000#CYCLE#") {
		t.Errorf("SK = %s", sk)
	}

	page, err := index.List(context.Background(), port.ReportListQuery{Host: "web-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d", len(page.Items))
	}
	got := page.Items[0]
	want := sampleRecord(at)
	if got.CycleID != want.CycleID || got.IssueCount != 2 || got.WarningCount != 1 || got.SizeBytes != 2048 {
		t.Errorf("record = %+v", got)
	}
	if !got.CapturedAt.Equal(at) || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("times = %v %v", got.CapturedAt, got.ExpiresAt)
	}

	if client.lastQuery.IndexName != nil || !*client.lastQuery.ConsistentRead || *client.lastQuery.Limit != defaultListLimit {
		t.Errorf("unexpected host query: %+v", client.lastQuery)
	}
}

func TestListByStatusUsesGSI(t *testing.T) {
	client := &fakeDynamo{}
	index := newReportIndex(client, Config{TableName: "reports", StrongReads: true})

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	_, err := index.List(context.Background(), port.ReportListQuery{Host: "web-1", Status: "WARN", Limit: 500, From: from, To: to})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	q := client.lastQuery
	if q.IndexName == nil || *q.IndexName != reportStatusGSI1 {
		t.Errorf("IndexName = %v", q.IndexName)
	}
	if q.ConsistentRead != nil {
		t.Error("GSI query must not request consistent reads")
	}
	if *q.Limit != maxListLimit {
		t.Errorf("Limit = %d, want %d", *q.Limit, maxListLimit)
	}
	if !strings.Contains(*q.KeyConditionExpression, "BETWEEN") {
		t.Errorf("KeyConditionExpression = %s", *q.KeyConditionExpression)
	}
	if q.ExpressionAttributeNames["#pk"] != attrGSI1PK {
		t.Errorf("pk attr = %s", q.ExpressionAttributeNames["#pk"])
	}
}

func TestCursorRoundTripAndMismatch(t *testing.T) {
	key := map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: "HOST#web-1"},
		attrSK: &types.AttributeValueMemberS{Value: "TS#0000000000001#CYCLE#a"},
	}
	client := &fakeDynamo{lastKey: key}
	index := newReportIndex(client, Config{TableName: "reports"})

	page, err := index.List(context.Background(), port.ReportListQuery{Host: "web-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	if _, err := index.List(context.Background(), port.ReportListQuery{Host: "web-1", Cursor: page.NextCursor}); err != nil {
		t.Fatalf("List(cursor) error = %v", err)
	}
	if client.lastQuery.ExclusiveStartKey[attrSK].(*types.AttributeValueMemberS).Value != "TS#0000000000001#CYCLE#a" {
		t.Error("ExclusiveStartKey not restored from cursor")
	}

	_, err = index.List(context.Background(), port.ReportListQuery{Host: "web-1", Status: "OK", Cursor: page.NextCursor})
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("expected cursor mismatch, got %v", err)
	}

	if _, err := index.List(context.Background(), port.ReportListQuery{Host: "web-1", Cursor: "%%%"}); err == nil {
		t.Error("expected invalid cursor error")
	}
}

func TestPutValidation(t *testing.T) {
	index := newReportIndex(&fakeDynamo{}, Config{TableName: "reports"})
	at := time.Now()

	tests := []struct {
		name   string
		mutate func(*port.ReportMetadata)
	}{
		{"invalid host", func(r *port.ReportMetadata) { r.Host = "bad host/" }},
		{"missing cycle", func(r *port.ReportMetadata) { r.CycleID = "" }},
		{"missing status", func(r *port.ReportMetadata) { r.OverallStatus = "" }},
		{"missing key", func(r *port.ReportMetadata) { r.S3Key = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := sampleRecord(at)
			tt.mutate(&record)
			if err := index.Put(context.Background(), record); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestListRejectsInvertedRange(t *testing.T) {
	index := newReportIndex(&fakeDynamo{}, Config{TableName: "reports"})
	now := time.Now()
	if _, err := index.List(context.Background(), port.ReportListQuery{Host: "web-1", From: now, To: now.Add(-time.Hour)}); err == nil {
		t.Error("expected range error")
	}
}
