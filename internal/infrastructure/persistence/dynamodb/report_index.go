package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/sre-monitor/internal/application/port"
)

const (
	defaultListLimit = 24
	maxListLimit     = 100

	reportStatusGSI1 = "GSI1"

	attrPK            = "PK"
	attrSK            = "SK"
	attrGSI1PK        = "GSI1PK"
	attrGSI1SK        = "GSI1SK"
	attrCycleID       = "cycle_id"
	attrHost          = "host"
	attrOverallStatus = "overall_status"
	attrS3Key         = "s3_key"
	attrURL           = "url"
	attrSizeBytes     = "size_bytes"
	attrIssueCount    = "issue_count"
	attrWarningCount  = "warning_count"
	attrCapturedAt    = "captured_at"
	attrExpiresAt     = "expires_at"
)

var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// dynamoAPI is the subset of the DynamoDB client used by the index.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ReportIndex implements port.ReportIndex on a single DynamoDB table.
// Items are keyed by host and capture time; GSI1 partitions them by status.
type ReportIndex struct {
	client      dynamoAPI
	tableName   string
	strongReads bool
}

type cursorMode string

const (
	cursorModeHost   cursorMode = "host"
	cursorModeStatus cursorMode = "status"
)

type cursorPayload struct {
	Mode   cursorMode             `json:"mode"`
	Host   string                 `json:"host"`
	Status string                 `json:"status,omitempty"`
	FromMS int64                  `json:"from_ms,omitempty"`
	ToMS   int64                  `json:"to_ms,omitempty"`
	Key    map[string]cursorValue `json:"key"`
}

type cursorValue struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

func NewReportIndex(ctx context.Context, cfg Config) (*ReportIndex, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return newReportIndex(client, cfg), nil
}

func newReportIndex(client dynamoAPI, cfg Config) *ReportIndex {
	return &ReportIndex{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
	}
}

// Put stores one archived report record.
func (r *ReportIndex) Put(ctx context.Context, record port.ReportMetadata) error {
	item, err := toItem(record)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item failed: %w", err)
	}

	return nil
}

// List returns one page of records for a host, newest first.
// A status filter switches the query to GSI1.
func (r *ReportIndex) List(ctx context.Context, query port.ReportListQuery) (port.ReportListPage, error) {
	host := strings.TrimSpace(query.Host)
	if !hostPattern.MatchString(host) {
		return port.ReportListPage{}, fmt.Errorf("invalid host")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	status := strings.TrimSpace(query.Status)
	fromMS, toMS, hasRange, err := normalizeTimeRange(query.From, query.To)
	if err != nil {
		return port.ReportListPage{}, err
	}

	mode := cursorModeHost
	if status != "" {
		mode = cursorModeStatus
	}

	input := &dynamodb.QueryInput{
		TableName:                 &r.tableName,
		Limit:                     int32Pointer(int32(limit)),
		ScanIndexForward:          boolPointer(false),
		ConsistentRead:            boolPointer(r.strongReads),
		ExpressionAttributeNames:  map[string]string{},
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}

	pkAttr, skAttr, pk := attrPK, attrSK, buildPK(host)
	if mode == cursorModeStatus {
		pkAttr, skAttr, pk = attrGSI1PK, attrGSI1SK, buildGSI1PK(host, status)
		input.IndexName = stringPointer(reportStatusGSI1)
		// GSI не поддерживает strongly consistent reads
		input.ConsistentRead = nil
	}

	input.ExpressionAttributeNames["#pk"] = pkAttr
	input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: pk}
	keyCondition := "#pk = :pk"
	if hasRange {
		input.ExpressionAttributeNames["#sk"] = skAttr
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
		input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
		keyCondition += " AND #sk BETWEEN :from AND :to"
	}
	input.KeyConditionExpression = &keyCondition

	if strings.TrimSpace(query.Cursor) != "" {
		exclusiveStartKey, err := decodeCursor(query.Cursor, mode, host, status, fromMS, toMS)
		if err != nil {
			return port.ReportListPage{}, err
		}
		input.ExclusiveStartKey = exclusiveStartKey
	}

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return port.ReportListPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	items := make([]port.ReportMetadata, 0, len(output.Items))
	for _, raw := range output.Items {
		item, err := fromItem(raw)
		if err != nil {
			return port.ReportListPage{}, err
		}
		items = append(items, item)
	}

	nextCursor := ""
	if len(output.LastEvaluatedKey) > 0 {
		nextCursor, err = encodeCursor(output.LastEvaluatedKey, mode, host, status, fromMS, toMS)
		if err != nil {
			return port.ReportListPage{}, err
		}
	}

	return port.ReportListPage{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

func toItem(record port.ReportMetadata) (map[string]types.AttributeValue, error) {
	host := strings.TrimSpace(record.Host)
	cycleID := strings.TrimSpace(record.CycleID)
	status := strings.TrimSpace(record.OverallStatus)
	s3Key := strings.TrimSpace(record.S3Key)
	if !hostPattern.MatchString(host) {
		return nil, fmt.Errorf("invalid host")
	}
	if cycleID == "" {
		return nil, fmt.Errorf("cycle_id is required")
	}
	if status == "" {
		return nil, fmt.Errorf("overall_status is required")
	}
	if s3Key == "" {
		return nil, fmt.Errorf("s3_key is required")
	}

	capturedAt := record.CapturedAt.UTC()
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	capturedAtMS := capturedAt.UnixMilli()

	item := map[string]types.AttributeValue{
		attrPK:            &types.AttributeValueMemberS{Value: buildPK(host)},
		attrSK:            &types.AttributeValueMemberS{Value: buildSK(capturedAtMS, cycleID)},
		attrGSI1PK:        &types.AttributeValueMemberS{Value: buildGSI1PK(host, status)},
		attrGSI1SK:        &types.AttributeValueMemberS{Value: buildSK(capturedAtMS, cycleID)},
		attrCycleID:       &types.AttributeValueMemberS{Value: cycleID},
		attrHost:          &types.AttributeValueMemberS{Value: host},
		attrOverallStatus: &types.AttributeValueMemberS{Value: status},
		attrS3Key:         &types.AttributeValueMemberS{Value: s3Key},
		attrIssueCount:    &types.AttributeValueMemberN{Value: strconv.Itoa(record.IssueCount)},
		attrWarningCount:  &types.AttributeValueMemberN{Value: strconv.Itoa(record.WarningCount)},
		attrCapturedAt:    &types.AttributeValueMemberN{Value: strconv.FormatInt(capturedAtMS, 10)},
	}

	if url := strings.TrimSpace(record.URL); url != "" {
		item[attrURL] = &types.AttributeValueMemberS{Value: url}
	}
	if record.SizeBytes > 0 {
		item[attrSizeBytes] = &types.AttributeValueMemberN{Value: strconv.FormatInt(record.SizeBytes, 10)}
	}
	// TTL атрибут в секундах
	if !record.ExpiresAt.IsZero() {
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(record.ExpiresAt.UTC().Unix(), 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (port.ReportMetadata, error) {
	cycleID, err := attrString(item, attrCycleID)
	if err != nil {
		return port.ReportMetadata{}, err
	}
	host, err := attrString(item, attrHost)
	if err != nil {
		return port.ReportMetadata{}, err
	}
	status, err := attrString(item, attrOverallStatus)
	if err != nil {
		return port.ReportMetadata{}, err
	}
	s3Key, err := attrString(item, attrS3Key)
	if err != nil {
		return port.ReportMetadata{}, err
	}
	capturedAtMS, err := attrInt64(item, attrCapturedAt)
	if err != nil {
		return port.ReportMetadata{}, err
	}

	record := port.ReportMetadata{
		CycleID:       cycleID,
		Host:          host,
		OverallStatus: status,
		S3Key:         s3Key,
		URL:           optionalString(item, attrURL),
		SizeBytes:     optionalInt64(item, attrSizeBytes),
		IssueCount:    int(optionalInt64(item, attrIssueCount)),
		WarningCount:  int(optionalInt64(item, attrWarningCount)),
		CapturedAt:    time.UnixMilli(capturedAtMS).UTC(),
	}

	if expiresAtSeconds := optionalInt64(item, attrExpiresAt); expiresAtSeconds > 0 {
		record.ExpiresAt = time.Unix(expiresAtSeconds, 0).UTC()
	}

	return record, nil
}

func normalizeTimeRange(from, to time.Time) (int64, int64, bool, error) {
	from = from.UTC()
	to = to.UTC()
	if from.IsZero() && to.IsZero() {
		return 0, math.MaxInt64, false, nil
	}

	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UnixMilli()
	}

	if fromMS > toMS {
		return 0, 0, false, fmt.Errorf("from must be less than or equal to to")
	}

	return fromMS, toMS, true, nil
}

func buildPK(host string) string {
	return "HOST#" + host
}

func buildGSI1PK(host, status string) string {
	return fmt.Sprintf("HOST#%s#STATUS#%s", host, status)
}

func buildSK(capturedAtMS int64, cycleID string) string {
	return fmt.Sprintf("TS#%013d#CYCLE#%s", capturedAtMS, cycleID)
}

func buildSortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func buildSortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func encodeCursor(
	key map[string]types.AttributeValue,
	mode cursorMode,
	host, status string,
	fromMS, toMS int64,
) (string, error) {
	values := make(map[string]cursorValue, len(key))
	for attributeName, raw := range key {
		switch value := raw.(type) {
		case *types.AttributeValueMemberS:
			values[attributeName] = cursorValue{S: value.Value}
		case *types.AttributeValueMemberN:
			values[attributeName] = cursorValue{N: value.Value}
		default:
			return "", fmt.Errorf("unsupported cursor attribute type for %s", attributeName)
		}
	}

	serialized, err := json.Marshal(cursorPayload{
		Mode:   mode,
		Host:   host,
		Status: status,
		FromMS: fromMS,
		ToMS:   toMS,
		Key:    values,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(serialized), nil
}

func decodeCursor(
	cursor string,
	mode cursorMode,
	host, status string,
	fromMS, toMS int64,
) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cursor", port.ErrInvalidReportQuery)
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid cursor", port.ErrInvalidReportQuery)
	}

	if payload.Mode != mode ||
		payload.Host != host ||
		payload.Status != status ||
		payload.FromMS != fromMS ||
		payload.ToMS != toMS {
		return nil, fmt.Errorf("%w: cursor does not match query filters", port.ErrInvalidReportQuery)
	}

	key := make(map[string]types.AttributeValue, len(payload.Key))
	for attributeName, value := range payload.Key {
		switch {
		case value.S != "":
			key[attributeName] = &types.AttributeValueMemberS{Value: value.S}
		case value.N != "":
			key[attributeName] = &types.AttributeValueMemberN{Value: value.N}
		default:
			return nil, fmt.Errorf("%w: invalid cursor", port.ErrInvalidReportQuery)
		}
	}

	return key, nil
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	value, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	value, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func boolPointer(v bool) *bool {
	return &v
}

func int32Pointer(v int32) *int32 {
	return &v
}

func stringPointer(v string) *string {
	return &v
}
