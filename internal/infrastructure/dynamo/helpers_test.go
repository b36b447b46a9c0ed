package dynamo

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/freelance-hub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "name"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"title":       "Logo",
		"description": "A logo",
		"status":      "done",
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, "description", ue1.Names["#f0"])
	assert.Equal(t, "status", ue1.Names["#f1"])
	assert.Equal(t, "title", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"enable": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestTranslateErr_ConditionalCheckFailed(t *testing.T) {
	err := translateErr(&types.ConditionalCheckFailedException{Message: aws.String("nope")})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestTranslateErr_TransactionCancelledByCondition(t *testing.T) {
	err := translateErr(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestTranslateErr_PassThrough(t *testing.T) {
	raw := errors.New("throttled")
	assert.Equal(t, raw, translateErr(raw))
	assert.NoError(t, translateErr(nil))
}

func TestFailedConditionAt(t *testing.T) {
	err := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
		},
	}
	assert.Equal(t, 0, failedConditionAt(err))
	assert.Equal(t, -1, failedConditionAt(errors.New("other")))
}

func TestOutboxPuts_SkipsEmptyEvents(t *testing.T) {
	items, err := outboxPuts("outbox", []*domain.OutboxEvent{
		nil,
		{EventID: "e1"},
		{EventID: "e2", Recipients: []string{"u1"}},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "outbox", aws.ToString(items[0].Put.TableName))
	assert.Equal(t, "attribute_not_exists(event_id)", aws.ToString(items[0].Put.ConditionExpression))
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, without([]string{"a", "b", "c", "b"}, "b"))
	assert.Equal(t, []string{}, without(nil, "x"))
}
