package dynamo

import (
	"encoding/base64"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dynamoTestKey struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string
}

func TestCursorEncodeAndDecode(t *testing.T) {
	item := dynamoTestKey{
		PK:     "REGISTRATION#abc",
		SK:     "REGISTRATION#abc",
		GSI1PK: "REGISTRATION",
		GSI1SK: "2025-04-01T09:00:00.000000000Z#abc",
	}

	key, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	cursor, err := lastEvalKeyToCursor(key)
	require.NoError(t, err)

	keyBack, err := cursorToLastEval(cursor)
	require.NoError(t, err)

	require.Equal(t, key, keyBack)
}

func TestCursorToLastEvalRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{
		"%%%not-base64",
		base64.URLEncoding.EncodeToString([]byte("not json")),
		base64.URLEncoding.EncodeToString([]byte("{}")),
	} {
		_, err := cursorToLastEval(cursor)
		assert.Error(t, err, cursor)
	}
}
