package dynamo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Every key attribute in the table is a string, so a cursor is the key
// flattened to a JSON object of strings.
func lastEvalKeyToCursor(lastEvalKey map[string]types.AttributeValue) (string, error) {
	var key map[string]string
	err := attributevalue.UnmarshalMap(lastEvalKey, &key)
	if err != nil {
		return "", fmt.Errorf("failed to read key attributes: %w", err)
	}

	bytesJSON, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("failed to encode to JSON: %w", err)
	}

	return base64.URLEncoding.EncodeToString(bytesJSON), nil
}

func cursorToLastEval(cursor string) (map[string]types.AttributeValue, error) {
	bytesJSON, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to b64 decode: %w", err)
	}

	var key map[string]string
	err = json.Unmarshal(bytesJSON, &key)
	if err != nil {
		return nil, fmt.Errorf("failed to json decode: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("cursor has no key attributes")
	}

	lastEval, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build key attributes: %w", err)
	}

	return lastEval, nil
}

func getKeyFromItem(key map[string]types.AttributeValue, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := map[string]types.AttributeValue{}
	for k := range key {
		result[k] = item[k]
	}
	return result
}
