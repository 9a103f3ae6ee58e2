package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/models"
)

// DynamoRefreshTokenRepository stores refresh credential records as
// REFRESH_TOKEN# items with a TTL attribute. DynamoDB's TTL deletion can lag
// by hours, so DeleteExpiredBefore remains the authoritative sweep.
type DynamoRefreshTokenRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoRefreshTokenRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoRefreshTokenRepository {
	return &DynamoRefreshTokenRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func refreshTokenPK(token string) string {
	return "REFRESH_TOKEN#" + token
}

func (r *DynamoRefreshTokenRepository) Insert(ctx context.Context, data models.RefreshTokenData) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: refreshTokenPK(data.Token)}
	item["SK"] = &types.AttributeValueMemberS{Value: "METADATA"}
	item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(data.ExpiresAt.Unix(), 10)}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to store refresh token in DynamoDB")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (r *DynamoRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshTokenData, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: refreshTokenPK(token)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var data models.RefreshTokenData
	if err := attributevalue.UnmarshalMap(result.Item, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return &data, nil
}

func (r *DynamoRefreshTokenRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	result, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: refreshTokenPK(token)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ReturnValues: types.ReturnValueAllOld,
	})

	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token: %w", err)
	}

	return len(result.Attributes) > 0, nil
}

func (r *DynamoRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	return r.scanAndDelete(ctx, "begins_with(PK, :pk_prefix) AND user_id = :user_id",
		map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "REFRESH_TOKEN#"},
			":user_id":   &types.AttributeValueMemberS{Value: userID},
		}, nil)
}

func (r *DynamoRefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	// TTL is a reserved word in filter expressions.
	return r.scanAndDelete(ctx, "begins_with(PK, :pk_prefix) AND #ttl < :cutoff",
		map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "REFRESH_TOKEN#"},
			":cutoff":    &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.Unix(), 10)},
		}, map[string]string{"#ttl": "TTL"})
}

func (r *DynamoRefreshTokenRepository) scanAndDelete(ctx context.Context, filter string, values map[string]types.AttributeValue, names map[string]string) (int, error) {
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  names,
		ProjectionExpression:      aws.String("PK, SK"),
	}

	count := 0
	var startKey map[string]types.AttributeValue

	for {
		input.ExclusiveStartKey = startKey

		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return count, fmt.Errorf("failed to scan refresh tokens: %w", err)
		}

		for _, item := range result.Items {
			_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": item["PK"],
					"SK": item["SK"],
				},
			})
			if err != nil {
				return count, fmt.Errorf("failed to delete refresh token: %w", err)
			}
			count++
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return count, nil
}
