// Package dynamo stores noise events in AWS DynamoDB
package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/urbansound/noisemap/internal/domain"
)

// API is the subset of the DynamoDB client the repository uses
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Repository implements domain.NoiseRepository on two DynamoDB tables keyed
// by "id". Events are returned ordered by timestamp since a scan has no
// insertion order.
type Repository struct {
	client      API
	eventsTable string
	logsTable   string
}

// New loads the default AWS config and creates a repository
func New(ctx context.Context, region, eventsTable string) (*Repository, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamo: unable to load SDK config: %w", err)
	}
	return NewWithClient(dynamodb.NewFromConfig(cfg), eventsTable), nil
}

// NewWithClient creates a repository on an existing client
func NewWithClient(client API, eventsTable string) *Repository {
	return &Repository{
		client:      client,
		eventsTable: eventsTable,
		logsTable:   eventsTable + "Classifications",
	}
}

// ListNoiseEvents scans the events table
func (r *Repository) ListNoiseEvents(ctx context.Context, limit int) ([]domain.NoiseEvent, error) {
	var (
		results  []domain.NoiseEvent
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.eventsTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo: failed to scan noise events: %w", err)
		}
		for _, item := range out.Items {
			e, err := decodeEvent(item)
			if err != nil {
				return nil, err
			}
			results = append(results, e)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})
	if limit > 0 && limit < len(results) {
		results = results[len(results)-limit:]
	}
	return results, nil
}

// SaveNoiseEvent writes one event item
func (r *Repository) SaveNoiseEvent(ctx context.Context, event domain.NoiseEvent) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.eventsTable),
		Item: map[string]types.AttributeValue{
			"id":         &types.AttributeValueMemberS{Value: uuid.NewString()},
			"sound_type": &types.AttributeValueMemberS{Value: event.SoundType},
			"intensity":  &types.AttributeValueMemberN{Value: formatFloat(event.Intensity)},
			"lat":        &types.AttributeValueMemberN{Value: formatFloat(event.Latitude)},
			"lng":        &types.AttributeValueMemberN{Value: formatFloat(event.Longitude)},
			"timestamp":  &types.AttributeValueMemberS{Value: event.Timestamp.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo: failed to save noise event: %w", err)
	}
	return nil
}

// SaveClassificationLog writes one classification item
func (r *Repository) SaveClassificationLog(ctx context.Context, entry domain.ClassificationLog) error {
	predictions, err := json.Marshal(entry.Predictions)
	if err != nil {
		return fmt.Errorf("dynamo: failed to encode predictions: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.logsTable),
		Item: map[string]types.AttributeValue{
			"id":          &types.AttributeValueMemberS{Value: entry.ID},
			"filename":    &types.AttributeValueMemberS{Value: entry.Filename},
			"predictions": &types.AttributeValueMemberS{Value: string(predictions)},
			"is_mock":     &types.AttributeValueMemberBOOL{Value: entry.IsMock},
			"created_at":  &types.AttributeValueMemberS{Value: entry.CreatedAt.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo: failed to save classification log: %w", err)
	}
	return nil
}

// Health checks that the events table is reachable
func (r *Repository) Health(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.eventsTable),
	})
	if err != nil {
		return fmt.Errorf("dynamo: health check failed: %w", err)
	}
	return nil
}

func decodeEvent(item map[string]types.AttributeValue) (domain.NoiseEvent, error) {
	var (
		e   domain.NoiseEvent
		err error
	)
	if e.SoundType, err = stringAttr(item, "sound_type"); err != nil {
		return e, err
	}
	if e.Intensity, err = numberAttr(item, "intensity"); err != nil {
		return e, err
	}
	if e.Latitude, err = numberAttr(item, "lat"); err != nil {
		return e, err
	}
	if e.Longitude, err = numberAttr(item, "lng"); err != nil {
		return e, err
	}
	ts, err := stringAttr(item, "timestamp")
	if err != nil {
		return e, err
	}
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return e, fmt.Errorf("dynamo: bad timestamp %q: %w", ts, err)
	}
	return e, nil
}

func stringAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("dynamo: attribute %q missing or not a string", key)
	}
	return v.Value, nil
}

func numberAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamo: attribute %q missing or not a number", key)
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("dynamo: attribute %q: %w", key, err)
	}
	return f, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
