package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/models"
)

type CategoryRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewCategoryRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *CategoryRepository {
	return &CategoryRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	now := time.Now()
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	category.CreatedAt = now
	category.UpdatedAt = now

	item, err := attributevalue.MarshalMap(category)
	if err != nil {
		return fmt.Errorf("failed to marshal category: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: category.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: category.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to create category in DynamoDB")
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// SeedDefaults writes the default category set for a new account.
func (r *CategoryRepository) SeedDefaults(ctx context.Context, userID string) error {
	for _, def := range models.DefaultCategories {
		category := def
		category.UserID = userID
		if err := r.Create(ctx, &category); err != nil {
			return err
		}
	}
	return nil
}

// ListByUserID returns the user's categories, optionally filtered by type,
// sorted by name.
func (r *CategoryRepository) ListByUserID(ctx context.Context, userID, categoryType string) ([]models.Category, error) {
	user := &models.User{ID: userID}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk_prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: user.GetPK()},
			":sk_prefix": &types.AttributeValueMemberS{Value: "CATEGORY#"},
		},
	}

	if categoryType != "" {
		input.FilterExpression = aws.String("#type = :type")
		input.ExpressionAttributeNames = map[string]string{"#type": "type"}
		input.ExpressionAttributeValues[":type"] = &types.AttributeValueMemberS{Value: categoryType}
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		r.logger.WithError(err).Error("Failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	var categories []models.Category
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})

	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id, userID string) (*models.Category, error) {
	category := &models.Category{ID: id, UserID: userID}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: category.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: category.GetSK()},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var dbCategory models.Category
	if err := attributevalue.UnmarshalMap(result.Item, &dbCategory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category: %w", err)
	}

	return &dbCategory, nil
}

// Update applies non-empty fields only. Returns false when the category does
// not exist for this user.
func (r *CategoryRepository) Update(ctx context.Context, id, userID string, name, color, icon string) (bool, error) {
	category := &models.Category{ID: id, UserID: userID}

	updateExpression := "SET updated_at = :updated_at"
	names := map[string]string{}
	values := map[string]types.AttributeValue{
		":updated_at": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
	}

	if name != "" {
		updateExpression += ", #name = :name"
		names["#name"] = "name"
		values[":name"] = &types.AttributeValueMemberS{Value: name}
	}
	if color != "" {
		updateExpression += ", color = :color"
		values[":color"] = &types.AttributeValueMemberS{Value: color}
	}
	if icon != "" {
		updateExpression += ", icon = :icon"
		values[":icon"] = &types.AttributeValueMemberS{Value: icon}
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: category.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: category.GetSK()},
		},
		UpdateExpression:          aws.String(updateExpression),
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	_, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		r.logger.WithError(err).Error("Failed to update category in DynamoDB")
		return false, fmt.Errorf("failed to update category: %w", err)
	}

	return true, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	category := &models.Category{ID: id, UserID: userID}

	result, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: category.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: category.GetSK()},
		},
		ReturnValues: types.ReturnValueAllOld,
	})

	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}

	return len(result.Attributes) > 0, nil
}
