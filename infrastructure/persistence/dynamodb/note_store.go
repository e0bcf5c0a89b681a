package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"share-note-backend/domain/core/entities"
	"share-note-backend/domain/core/valueobjects"
	pkgerrors "share-note-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"
)

const keyPrefix = "NOTE#"

// API is the subset of the DynamoDB client the note store uses
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// noteItem is the stored shape of a note. ExpiresAt is the table's TTL
// attribute, in epoch seconds.
type noteItem struct {
	PK           string `dynamodbav:"PK"`
	Content      string `dynamodbav:"Content"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	ExpiresAt    int64  `dynamodbav:"ExpiresAt"`
}

// NoteStore implements ports.NoteStore on a single DynamoDB table
type NoteStore struct {
	client    API
	tableName string
	now       func() time.Time
	logger    *zap.Logger
}

// NewNoteStore creates a new DynamoDB note store
func NewNoteStore(client API, tableName string, logger *zap.Logger) *NoteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteStore{
		client:    client,
		tableName: tableName,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Create writes the note unless an item with the same key exists
func (s *NoteStore) Create(ctx context.Context, note *entities.Note) error {
	item, err := attributevalue.MarshalMap(toItem(note))
	if err != nil {
		return s.translateError("create", fmt.Errorf("failed to marshal note: %w", err))
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return s.translateError("create", fmt.Errorf("failed to build expression: %w", err))
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return s.translateError("create", err)
	}

	s.logger.Debug("Note item written",
		zap.String("noteID", note.ID().String()),
		zap.Int64("expiresAt", note.ExpiresAt().Unix()),
	)
	return nil
}

// Get reads a live note with a strongly consistent read
func (s *NoteStore) Get(ctx context.Context, id valueobjects.NoteID) (*entities.Note, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            noteKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.translateError("get", err)
	}
	if len(out.Item) == 0 {
		return nil, entities.ErrNoteNotFound
	}

	note, err := fromItem(out.Item)
	if err != nil {
		return nil, s.translateError("get", err)
	}
	// TTL deletion can lag expiry by hours
	if note.IsExpired(s.now()) {
		return nil, entities.ErrNoteNotFound
	}
	return note, nil
}

// Consume deletes the note in one conditional DeleteItem. On a failed
// condition the old item comes back, which tells an absent or expired note
// apart from a wrong password without a second read.
func (s *NoteStore) Consume(ctx context.Context, id valueobjects.NoteID, digest valueobjects.PasswordDigest, now time.Time) (*entities.Note, error) {
	cond := expression.Name("PK").AttributeExists().
		And(expression.Name("PasswordHash").Equal(expression.Value(digest.String()))).
		And(expression.Name("ExpiresAt").GreaterThan(expression.Value(now.Unix())))

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, s.translateError("consume", fmt.Errorf("failed to build expression: %w", err))
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                           aws.String(s.tableName),
		Key:                                 noteKey(id),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, s.classifyFailedConsume(ccf.Item, now)
		}
		return nil, s.translateError("consume", err)
	}

	note, err := fromItem(out.Attributes)
	if err != nil {
		return nil, s.translateError("consume", err)
	}
	return note, nil
}

// classifyFailedConsume decides why a conditional delete did not match
func (s *NoteStore) classifyFailedConsume(old map[string]types.AttributeValue, now time.Time) error {
	if len(old) == 0 {
		return entities.ErrNoteNotFound
	}
	note, err := fromItem(old)
	if err != nil {
		return s.translateError("consume", err)
	}
	if note.IsExpired(now) {
		return entities.ErrNoteNotFound
	}
	return entities.ErrPasswordMismatch
}

// Ping checks the table is reachable
func (s *NoteStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return s.translateError("ping", err)
}

// translateError maps every DynamoDB failure into the error taxonomy
func (s *NoteStore) translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	cause := fmt.Errorf("dynamodb %s: %w", op, err)

	if appErr := pkgerrors.FromContext(err); appErr != nil {
		return appErr.WithCause(cause)
	}

	var maxAttempts *retry.MaxAttemptsError
	if errors.As(err, &maxAttempts) {
		return pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout).WithCause(cause)
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		// Only Create reaches here: a random id collided with a live item
		return pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(cause)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "AccessDeniedException",
			"UnrecognizedClientException",
			"InvalidSignatureException",
			"MissingAuthenticationTokenException",
			"ExpiredTokenException",
			"ResourceNotFoundException",
			"ProvisionedThroughputExceededException",
			"RequestLimitExceeded",
			"ThrottlingException",
			"InternalServerError",
			"ServiceUnavailable":
			return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
		case "RequestTimeout", "RequestTimeoutException":
			return pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout).WithCause(cause)
		}
		return pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(cause)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return pkgerrors.NewTimeoutError(pkgerrors.MessageStoreTimeout).WithCause(cause)
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return pkgerrors.NewUnavailableError(pkgerrors.MessageStoreUnavailable).WithCause(cause)
	}

	return pkgerrors.NewInternalError(pkgerrors.MessageInternal).WithCause(cause)
}

func noteKey(id valueobjects.NoteID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: keyPrefix + id.String()},
	}
}

func toItem(note *entities.Note) noteItem {
	return noteItem{
		PK:           keyPrefix + note.ID().String(),
		Content:      note.Content(),
		PasswordHash: note.PasswordHash().String(),
		CreatedAt:    note.CreatedAt().Format(time.RFC3339),
		ExpiresAt:    note.ExpiresAt().Unix(),
	}
}

func fromItem(item map[string]types.AttributeValue) (*entities.Note, error) {
	var ni noteItem
	if err := attributevalue.UnmarshalMap(item, &ni); err != nil {
		return nil, fmt.Errorf("failed to unmarshal note item: %w", err)
	}

	id, err := valueobjects.NewNoteIDFromString(strings.TrimPrefix(ni.PK, keyPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid note key %q: %w", ni.PK, err)
	}

	createdAt, err := time.Parse(time.RFC3339, ni.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	return entities.ReconstructNote(
		id,
		ni.Content,
		valueobjects.PasswordDigestFromStored(ni.PasswordHash),
		createdAt,
		time.Unix(ni.ExpiresAt, 0),
	), nil
}
