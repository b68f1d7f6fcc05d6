package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ registration.Repository = &DB{}

type registrationDynamo struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string

	ID           uuid.UUID
	Version      int
	NameKanji    string
	NameKatakana string
	PhoneNumber  string
	CompanyName  string
	Email        string
	BirthDate    string

	ExternalUserID      string `dynamodbav:",omitempty"`
	ExternalDisplayName string `dynamodbav:",omitempty"`
	ExternalAvatarURL   string `dynamodbav:",omitempty"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// externalUserDynamo claims an external user ID for one registration. It is
// written with attribute_not_exists(PK), which makes the ID unique.
type externalUserDynamo struct {
	PK string
	SK string

	ExternalUserID string
	RegistrationID uuid.UUID
}

const (
	registrationEntityName = "REGISTRATION"
	externalUserEntityName = "EXTERNAL_USER"

	conditionalCheckFailed = "ConditionalCheckFailed"

	// Fixed width so that GSI1SK sorts lexically in time order.
	sortableTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func registrationPK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func registrationSK(id uuid.UUID) string {
	return registrationPK(id)
}

func registrationGSI1SK(createdAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", createdAt.UTC().Format(sortableTimeLayout), id)
}

func externalUserPK(externalUserID string) string {
	return fmt.Sprintf("%s#%s", externalUserEntityName, externalUserID)
}

func externalUserSK(externalUserID string) string {
	return externalUserPK(externalUserID)
}

func registrationToDynamo(reg registration.Registration) registrationDynamo {
	return registrationDynamo{
		PK:                  registrationPK(reg.ID),
		SK:                  registrationSK(reg.ID),
		GSI1PK:              registrationEntityName,
		GSI1SK:              registrationGSI1SK(reg.CreatedAt, reg.ID),
		ID:                  reg.ID,
		Version:             reg.Version,
		NameKanji:           reg.NameKanji,
		NameKatakana:        reg.NameKatakana,
		PhoneNumber:         reg.PhoneNumber,
		CompanyName:         reg.CompanyName,
		Email:               reg.Email,
		BirthDate:           reg.BirthDate.Format(registration.BirthDateLayout),
		ExternalUserID:      reg.ExternalUserID,
		ExternalDisplayName: reg.ExternalDisplayName,
		ExternalAvatarURL:   reg.ExternalAvatarURL,
		CreatedAt:           reg.CreatedAt.UTC(),
		UpdatedAt:           reg.UpdatedAt.UTC(),
	}
}

func dynamoToRegistration(dynReg registrationDynamo) (registration.Registration, error) {
	birthDate, err := time.Parse(registration.BirthDateLayout, dynReg.BirthDate)
	if err != nil {
		return registration.Registration{}, fmt.Errorf("invalid stored birth date %q: %w", dynReg.BirthDate, err)
	}

	return registration.Registration{
		ID:                  dynReg.ID,
		Version:             dynReg.Version,
		NameKanji:           dynReg.NameKanji,
		NameKatakana:        dynReg.NameKatakana,
		PhoneNumber:         dynReg.PhoneNumber,
		CompanyName:         dynReg.CompanyName,
		Email:               dynReg.Email,
		BirthDate:           birthDate,
		ExternalUserID:      dynReg.ExternalUserID,
		ExternalDisplayName: dynReg.ExternalDisplayName,
		ExternalAvatarURL:   dynReg.ExternalAvatarURL,
		CreatedAt:           dynReg.CreatedAt,
		UpdatedAt:           dynReg.UpdatedAt,
	}, nil
}

func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	dynamoReg := registrationToDynamo(reg)

	regItem, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
	}
	regExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(newEntityVersionConditional(dynamoReg.Version)))

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:                 aws.String(d.tableName),
				Item:                      regItem,
				ConditionExpression:       regExpr.Condition(),
				ExpressionAttributeNames:  regExpr.Names(),
				ExpressionAttributeValues: regExpr.Values(),
			},
		},
	}

	if reg.HasExternalUser() {
		claimItem, err := attributevalue.MarshalMap(externalUserDynamo{
			PK:             externalUserPK(reg.ExternalUserID),
			SK:             externalUserSK(reg.ExternalUserID),
			ExternalUserID: reg.ExternalUserID,
			RegistrationID: reg.ID,
		})
		if err != nil {
			return registration.NewFailedToTranslateToDBModelError("Failed to translate external user claim to dynamo model", err)
		}
		claimExpr := exprMustBuild(expression.NewBuilder().
			WithCondition(uniqueItemConditional()))

		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                 aws.String(d.tableName),
				Item:                      claimItem,
				ConditionExpression:       claimExpr.Condition(),
				ExpressionAttributeNames:  claimExpr.Names(),
				ExpressionAttributeValues: claimExpr.Values(),
			},
		})
	}

	_, err = d.dynamoClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var transactionFailedErr *types.TransactionCanceledException
		if errors.As(err, &transactionFailedErr) {
			reasons := transactionFailedErr.CancellationReasons
			if failedCondition(reasons, 1) {
				return registration.NewExternalUserAlreadyRegisteredError(reg.ExternalUserID, err)
			}
			if failedCondition(reasons, 0) {
				return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), err)
			}
			return registration.NewFailedToWriteError("Registration transaction was cancelled", err)
		}
		if isTimeout(err) {
			return registration.NewTimeoutError("Timed out writing registration", err)
		}
		return registration.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

func (d *DB) UpdateRegistration(ctx context.Context, reg registration.Registration) error {
	dynamoReg := registrationToDynamo(reg)

	regItem, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
	}
	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(existingEntityVersionConditional(dynamoReg.Version)))

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      regItem,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailedErr) {
			return registration.NewVersionConflictError(fmt.Sprintf("Registration %q was modified concurrently", reg.ID), err)
		}
		if isTimeout(err) {
			return registration.NewTimeoutError("Timed out updating registration", err)
		}
		return registration.NewFailedToWriteError("Failed PutItem call", err)
	}

	return nil
}

func (d *DB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: registrationPK(id)},
			"SK": &types.AttributeValueMemberS{Value: registrationSK(id)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return registration.Registration{}, fetchError(fmt.Sprintf("Failed to fetch registration with id %q", id), err)
	}

	if len(resp.Item) == 0 {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
	}

	var dynReg registrationDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &dynReg)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to unmarshal registration %q", id), err)
	}

	reg, err := dynamoToRegistration(dynReg)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToFetchError(fmt.Sprintf("Registration %q is malformed", id), err)
	}
	return reg, nil
}

func (d *DB) GetRegistrationByExternalUserID(ctx context.Context, externalUserID string) (registration.Registration, error) {
	if externalUserID == "" {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError("Empty external user ID never matches", nil)
	}

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: externalUserPK(externalUserID)},
			"SK": &types.AttributeValueMemberS{Value: externalUserSK(externalUserID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return registration.Registration{}, fetchError(fmt.Sprintf("Failed to fetch external user %q", externalUserID), err)
	}

	if len(resp.Item) == 0 {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("No registration for external user %q", externalUserID), nil)
	}

	var claim externalUserDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &claim)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to unmarshal external user %q", externalUserID), err)
	}

	return d.GetRegistration(ctx, claim.RegistrationID)
}

func (d *DB) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(registrationEntityName))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build dynamo key expression: %s", err))
	}

	var startKey map[string]types.AttributeValue
	if cursor != nil {
		startKey, err = cursorToLastEval(*cursor)
		if err != nil {
			return registration.GetAllRegistrationsResponse{}, registration.NewInvalidCursorError("Invalid cursor", err)
		}
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		// Fetch 1 more than limit to check if there is another page or not
		Limit:             aws.Int32(limit + 1),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		return registration.GetAllRegistrationsResponse{}, fetchError("Failed to fetch registrations from dynamo", err)
	}

	var dynamoItems []registrationDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		return registration.GetAllRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to unmarshal registrations", err)
	}

	hasNextPage := len(dynamoItems) > int(limit)

	var newCursor *string
	if hasNextPage && len(result.LastEvaluatedKey) > 0 {
		// Can't use LastEvalKey directly because we grabbed an extra item to check for next page
		lastItemGivenToUser := result.Items[len(result.Items)-2]
		lastItemKey := getKeyFromItem(result.LastEvaluatedKey, lastItemGivenToUser)
		c, err := lastEvalKeyToCursor(lastItemKey)
		if err != nil {
			return registration.GetAllRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to build next page cursor", err)
		}
		newCursor = &c
	}

	regs := make([]registration.Registration, 0, len(dynamoItems))
	for _, item := range dynamoItems[:min(int(limit), len(dynamoItems))] {
		reg, err := dynamoToRegistration(item)
		if err != nil {
			return registration.GetAllRegistrationsResponse{}, registration.NewFailedToFetchError(fmt.Sprintf("Registration %q is malformed", item.ID), err)
		}
		regs = append(regs, reg)
	}

	return registration.GetAllRegistrationsResponse{
		Data:        regs,
		Cursor:      newCursor,
		HasNextPage: hasNextPage,
	}, nil
}

func failedCondition(reasons []types.CancellationReason, index int) bool {
	if index >= len(reasons) {
		return false
	}
	return aws.ToString(reasons[index].Code) == conditionalCheckFailed
}

func fetchError(message string, err error) error {
	if isTimeout(err) {
		return registration.NewTimeoutError(message, err)
	}
	return registration.NewFailedToFetchError(message, err)
}
