package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Item attribute names. The table is keyed by (collection, id).
const (
	attrCollection = "collection"
	attrID         = "id"
	attrOwner      = "owner_id"
	attrKey        = "doc_key"
	attrBody       = "body"
	attrCreated    = "created_at"
)

// DynamoStore keeps documents in a DynamoDB table.
type DynamoStore struct {
	client    DynamoDBAPI
	tableName string
	now       func() time.Time
	logger    *slog.Logger
}

// NewDynamoStore creates a store over an existing client.
func NewDynamoStore(client DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// DynamoConfig locates the table.
type DynamoConfig struct {
	Table    string `yaml:"table" env:"DYNAMODB_TABLE"`
	Region   string `yaml:"region" env:"AWS_REGION"`
	Endpoint string `yaml:"endpoint" env:"DYNAMODB_ENDPOINT"`
}

// OpenDynamo loads the default AWS credential chain and returns a store.
// A non-empty Endpoint targets DynamoDB Local or LocalStack.
func OpenDynamo(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoStore(client, cfg.Table), nil
}

func (s *DynamoStore) Create(ctx context.Context, doc *Document) error {
	if err := prepare(doc, s.now()); err != nil {
		return err
	}
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                toItem(doc),
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrID,
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s/%s", ErrConflict, doc.Collection, doc.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to put %s document %s in DynamoDB: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(collection, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s from DynamoDB: %w", collection, id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return fromItem(out.Item)
}

// Find queries the collection partition, applies owner and key filters
// server side and orders the page newest first.
func (s *DynamoStore) Find(ctx context.Context, q Query) ([]Document, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCollection,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: q.Collection},
		},
	}
	var filters []string
	if q.OwnerID != "" {
		filters = append(filters, "#o = :o")
		input.ExpressionAttributeNames["#o"] = attrOwner
		input.ExpressionAttributeValues[":o"] = &types.AttributeValueMemberS{Value: q.OwnerID}
	}
	if q.Key != "" {
		filters = append(filters, "#k = :k")
		input.ExpressionAttributeNames["#k"] = attrKey
		input.ExpressionAttributeValues[":k"] = &types.AttributeValueMemberS{Value: q.Key}
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " AND "))
	}

	var docs []Document
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s in DynamoDB: %w", q.Collection, err)
		}
		for _, item := range out.Items {
			doc, err := fromItem(item)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping unreadable document", "collection", q.Collection, "error", err)
				continue
			}
			docs = append(docs, *doc)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if limit := limitOf(q); len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 itemKey(collection, id),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrID,
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s from DynamoDB: %w", collection, id, err)
	}
	return nil
}

func (s *DynamoStore) DeleteWhere(ctx context.Context, q Query) (int, error) {
	deleted := 0
	for {
		page := q
		page.Limit = DefaultLimit
		docs, err := s.Find(ctx, page)
		if err != nil {
			return deleted, err
		}
		for _, d := range docs {
			if err := s.Delete(ctx, d.Collection, d.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return deleted, err
			}
			deleted++
		}
		if len(docs) < DefaultLimit {
			return deleted, nil
		}
	}
}

func itemKey(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCollection: &types.AttributeValueMemberS{Value: collection},
		attrID:         &types.AttributeValueMemberS{Value: id},
	}
}

func toItem(doc *Document) map[string]types.AttributeValue {
	item := itemKey(doc.Collection, doc.ID)
	item[attrOwner] = &types.AttributeValueMemberS{Value: doc.OwnerID}
	item[attrKey] = &types.AttributeValueMemberS{Value: doc.Key}
	item[attrBody] = &types.AttributeValueMemberS{Value: string(doc.Body)}
	item[attrCreated] = &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.CreatedAt.UnixNano(), 10)}
	return item
}

func fromItem(item map[string]types.AttributeValue) (*Document, error) {
	str := func(name string) string {
		if v, ok := item[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		return ""
	}
	doc := &Document{
		ID:         str(attrID),
		Collection: str(attrCollection),
		OwnerID:    str(attrOwner),
		Key:        str(attrKey),
		Body:       []byte(str(attrBody)),
	}
	if doc.ID == "" || doc.Collection == "" {
		return nil, fmt.Errorf("item is missing its key attributes")
	}
	if n, ok := item[attrCreated].(*types.AttributeValueMemberN); ok {
		nanos, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad %s: %w", attrCreated, err)
		}
		doc.CreatedAt = time.Unix(0, nanos).UTC()
	}
	return doc, nil
}
