// Package dynamodb stores user records and their conversation records in
// DynamoDB tables. Conversations are looked up through a secondary index
// keyed by the owning user's email.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/patric-chuzhbe/userpurge/internal/models"
)

type dynamoAPI interface {
	DeleteItem(
		ctx context.Context,
		params *dynamodb.DeleteItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.DeleteItemOutput, error)

	Query(
		ctx context.Context,
		params *dynamodb.QueryInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.QueryOutput, error)
}

// ConversationSchema names the table, index and attributes conversation
// records are stored under.
type ConversationSchema struct {
	TableName      string
	IndexName      string
	OwnerAttribute string
	PartitionKey   string
	// SortKey may be empty for tables keyed by the partition key alone.
	SortKey string
}

// Storage implements the user and conversation stores on DynamoDB.
type Storage struct {
	client        dynamoAPI
	usersTable    string
	usersKey      string
	conversations ConversationSchema
}

// New wraps an existing DynamoDB client.
func New(client dynamoAPI, usersTable, usersKey string, conversations ConversationSchema) *Storage {
	return &Storage{
		client:        client,
		usersTable:    usersTable,
		usersKey:      usersKey,
		conversations: conversations,
	}
}

// NewFromConfig builds the DynamoDB client from cfg.
func NewFromConfig(cfg aws.Config, usersTable, usersKey string, conversations ConversationSchema) *Storage {
	return New(dynamodb.NewFromConfig(cfg), usersTable, usersKey, conversations)
}

// DeleteUser removes the user record keyed by email.
func (s *Storage) DeleteUser(ctx context.Context, email string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.usersTable),
		Key: map[string]types.AttributeValue{
			s.usersKey: &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting user record from %s: %w", s.usersTable, err)
	}

	return nil
}

// FindByOwner returns the keys of every conversation owned by email,
// following pagination until the index is exhausted.
func (s *Storage) FindByOwner(ctx context.Context, email string) ([]models.DependentRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.conversations.TableName),
		IndexName:              aws.String(s.conversations.IndexName),
		KeyConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": s.conversations.OwnerAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: email},
		},
	}

	var records []models.DependentRecord
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying %s on %s: %w", s.conversations.IndexName, s.conversations.TableName, err)
		}

		for _, item := range page.Items {
			record, err := s.recordFromItem(item)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}

	return records, nil
}

// DeleteRecord removes one conversation by its own key pair.
func (s *Storage) DeleteRecord(ctx context.Context, record models.DependentRecord) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.conversations.TableName),
		Key:       s.recordKey(record),
	})
	if err != nil {
		return fmt.Errorf("deleting conversation %s from %s: %w", record.PrimaryKey, s.conversations.TableName, err)
	}

	return nil
}

func (s *Storage) recordKey(record models.DependentRecord) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		s.conversations.PartitionKey: &types.AttributeValueMemberS{Value: record.PrimaryKey},
	}
	if s.conversations.SortKey != "" {
		key[s.conversations.SortKey] = &types.AttributeValueMemberS{Value: record.SecondaryKey}
	}

	return key
}

func (s *Storage) recordFromItem(item map[string]types.AttributeValue) (models.DependentRecord, error) {
	var record models.DependentRecord

	if err := unmarshalKey(item, s.conversations.PartitionKey, &record.PrimaryKey); err != nil {
		return record, err
	}
	if s.conversations.SortKey != "" {
		if err := unmarshalKey(item, s.conversations.SortKey, &record.SecondaryKey); err != nil {
			return record, err
		}
	}

	return record, nil
}

func unmarshalKey(item map[string]types.AttributeValue, name string, out *string) error {
	value, ok := item[name]
	if !ok {
		return fmt.Errorf("conversation item has no %q attribute", name)
	}
	if err := attributevalue.Unmarshal(value, out); err != nil {
		return fmt.Errorf("decoding %q attribute: %w", name, err)
	}

	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Storage) Close() error {
	return nil
}
