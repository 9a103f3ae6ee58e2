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

const defaultTransactionLimit = 1000

type TransactionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewTransactionRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *TransactionRepository {
	return &TransactionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	now := time.Now()
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now

	item, err := attributevalue.MarshalMap(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: txn.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: txn.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to create transaction in DynamoDB")
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListByUserID queries the user's transactions newest-first. Date ranges ride
// on the sort key; type and category narrow with a filter expression.
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, filters models.TransactionFilters) ([]models.Transaction, error) {
	user := &models.User{ID: userID}

	keyCondition := "PK = :pk AND begins_with(SK, :sk_prefix)"
	values := map[string]types.AttributeValue{
		":pk":        &types.AttributeValueMemberS{Value: user.GetPK()},
		":sk_prefix": &types.AttributeValueMemberS{Value: "TXN#"},
	}

	if !filters.StartDate.IsZero() || !filters.EndDate.IsZero() {
		start := "TXN#"
		end := "TXN#￿"
		if !filters.StartDate.IsZero() {
			start = "TXN#" + filters.StartDate.UTC().Format(time.RFC3339)
		}
		if !filters.EndDate.IsZero() {
			end = "TXN#" + filters.EndDate.UTC().Format(time.RFC3339) + "￿"
		}
		keyCondition = "PK = :pk AND SK BETWEEN :sk_start AND :sk_end"
		delete(values, ":sk_prefix")
		values[":sk_start"] = &types.AttributeValueMemberS{Value: start}
		values[":sk_end"] = &types.AttributeValueMemberS{Value: end}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false), // newest first
	}

	var filterParts []string
	names := map[string]string{}
	if filters.Type != "" {
		filterParts = append(filterParts, "#type = :type")
		names["#type"] = "type"
		values[":type"] = &types.AttributeValueMemberS{Value: filters.Type}
	}
	if filters.Category != "" {
		filterParts = append(filterParts, "category = :category")
		values[":category"] = &types.AttributeValueMemberS{Value: filters.Category}
	}
	if len(filterParts) > 0 {
		filter := filterParts[0]
		for _, p := range filterParts[1:] {
			filter += " AND " + p
		}
		input.FilterExpression = aws.String(filter)
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}

	var transactions []models.Transaction
	var startKey map[string]types.AttributeValue

	for len(transactions) < limit {
		input.ExclusiveStartKey = startKey

		result, err := r.client.Query(ctx, input)
		if err != nil {
			r.logger.WithError(err).Error("Failed to query transactions")
			return nil, fmt.Errorf("failed to query transactions: %w", err)
		}

		var page []models.Transaction
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
		transactions = append(transactions, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	if len(transactions) > limit {
		transactions = transactions[:limit]
	}

	return transactions, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id, userID string) (*models.Transaction, error) {
	// The sort key embeds the date, which callers don't know, so single-item
	// lookups go through a small query on the id.
	user := &models.User{ID: userID}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk_prefix)"),
		FilterExpression:       aws.String("id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: user.GetPK()},
			":sk_prefix": &types.AttributeValueMemberS{Value: "TXN#"},
			":id":        &types.AttributeValueMemberS{Value: id},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, nil
	}

	var txn models.Transaction
	if err := attributevalue.UnmarshalMap(result.Items[0], &txn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	return &txn, nil
}

// Update rewrites the whole item: a date change moves the item to a new sort
// key, so delete-and-put is the only correct shape.
func (r *TransactionRepository) Update(ctx context.Context, txn *models.Transaction, oldSK string) error {
	if oldSK != txn.GetSK() {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: txn.GetPK()},
				"SK": &types.AttributeValueMemberS{Value: oldSK},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to move transaction: %w", err)
		}
	}

	txn.UpdatedAt = time.Now()

	item, err := attributevalue.MarshalMap(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: txn.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: txn.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to update transaction in DynamoDB")
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	txn, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if txn == nil {
		return false, nil
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: txn.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: txn.GetSK()},
		},
	})

	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}

	return true, nil
}

// GetStatistics aggregates totals per type over the matching transactions.
// DynamoDB has no server-side aggregation, so the math happens here.
func (r *TransactionRepository) GetStatistics(ctx context.Context, userID string, filters models.TransactionFilters) (*models.Statistics, error) {
	filters.Type = ""
	filters.Category = ""
	filters.Limit = 0

	transactions, err := r.ListByUserID(ctx, userID, filters)
	if err != nil {
		return nil, err
	}

	stats := &models.Statistics{
		Income:  models.TypeStatistics{Categories: []string{}},
		Expense: models.TypeStatistics{Categories: []string{}},
	}

	incomeCategories := map[string]struct{}{}
	expenseCategories := map[string]struct{}{}

	for _, txn := range transactions {
		switch txn.Type {
		case "income":
			stats.Income.Total += txn.Amount
			stats.Income.Count++
			incomeCategories[txn.Category] = struct{}{}
		case "expense":
			stats.Expense.Total += txn.Amount
			stats.Expense.Count++
			expenseCategories[txn.Category] = struct{}{}
		}
	}

	for c := range incomeCategories {
		stats.Income.Categories = append(stats.Income.Categories, c)
	}
	for c := range expenseCategories {
		stats.Expense.Categories = append(stats.Expense.Categories, c)
	}
	sort.Strings(stats.Income.Categories)
	sort.Strings(stats.Expense.Categories)

	stats.Balance = stats.Income.Total - stats.Expense.Total

	return stats, nil
}

// GetCategoryBreakdown groups one type's transactions by category, sorted by
// total descending.
func (r *TransactionRepository) GetCategoryBreakdown(ctx context.Context, userID, txnType string, filters models.TransactionFilters) ([]models.CategoryBreakdown, error) {
	if txnType != "income" && txnType != "expense" {
		return nil, errors.New("type must be income or expense")
	}

	filters.Type = txnType
	filters.Category = ""
	filters.Limit = 0

	transactions, err := r.ListByUserID(ctx, userID, filters)
	if err != nil {
		return nil, err
	}

	totals := map[string]*models.CategoryBreakdown{}
	for _, txn := range transactions {
		entry, ok := totals[txn.Category]
		if !ok {
			entry = &models.CategoryBreakdown{Category: txn.Category}
			totals[txn.Category] = entry
		}
		entry.Total += txn.Amount
		entry.Count++
	}

	breakdown := make([]models.CategoryBreakdown, 0, len(totals))
	for _, entry := range totals {
		breakdown = append(breakdown, *entry)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].Total > breakdown[j].Total
	})

	return breakdown, nil
}
