package ontology

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock keyed by table and term.
type mockDDBClient struct {
	mu     sync.Mutex
	items  map[string]map[string]map[string]types.AttributeValue // table -> term -> item
	err    error
	calls  int
	inputs []*dynamodb.GetItemInput
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]map[string]types.AttributeValue)}
}

func (m *mockDDBClient) put(table, term string, item map[string]types.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[table] == nil {
		m.items[table] = make(map[string]map[string]types.AttributeValue)
	}
	m.items[table][term] = item
}

func (m *mockDDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}

	term := params.Key["term"].(*types.AttributeValueMemberS).Value
	item, ok := m.items[aws.ToString(params.TableName)][term]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func testDynamoConfig() DynamoConfig {
	return DynamoConfig{
		AncestorsTable:   "ontology-anscestors",
		DescendantsTable: "ontology-descendants",
	}
}

func TestDynamoService_StringSet(t *testing.T) {
	client := newMockDDBClient()
	client.put("ontology-descendants", "NCIT:C3262", map[string]types.AttributeValue{
		"term":        &types.AttributeValueMemberS{Value: "NCIT:C3262"},
		"descendants": &types.AttributeValueMemberSS{Value: []string{"NCIT:C4910", "NCIT:C3262"}},
	})

	svc := NewDynamoService(client, testDynamoConfig(), nil)

	got, ok := svc.Descendants(context.Background(), "NCIT:C3262")
	require.True(t, ok)
	assert.Equal(t, []string{"NCIT:C3262", "NCIT:C4910"}, got)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "ontology-descendants", aws.ToString(in.TableName))
	assert.Equal(t, "descendants", in.ExpressionAttributeNames["#set"])
}

func TestDynamoService_ListAttribute(t *testing.T) {
	client := newMockDDBClient()
	client.put("ontology-anscestors", "B", map[string]types.AttributeValue{
		"term": &types.AttributeValueMemberS{Value: "B"},
		"anscestors": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "B"},
			&types.AttributeValueMemberS{Value: "A"},
		}},
	})

	svc := NewDynamoService(client, testDynamoConfig(), nil)

	got, ok := svc.Ancestors(context.Background(), "B")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestDynamoService_MissesAreNotErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("absent item", func(t *testing.T) {
		svc := NewDynamoService(newMockDDBClient(), testDynamoConfig(), nil)
		_, ok := svc.Descendants(ctx, "NOPE:1")
		assert.False(t, ok)
	})

	t.Run("backend error", func(t *testing.T) {
		client := newMockDDBClient()
		client.err = errors.New("throttled")
		svc := NewDynamoService(client, testDynamoConfig(), nil)
		_, ok := svc.Ancestors(ctx, "A")
		assert.False(t, ok)
	})

	t.Run("wrong attribute shape", func(t *testing.T) {
		client := newMockDDBClient()
		client.put("ontology-descendants", "A", map[string]types.AttributeValue{
			"descendants": &types.AttributeValueMemberN{Value: "3"},
		})
		svc := NewDynamoService(client, testDynamoConfig(), nil)
		_, ok := svc.Descendants(ctx, "A")
		assert.False(t, ok)
	})

	t.Run("empty set", func(t *testing.T) {
		client := newMockDDBClient()
		client.put("ontology-descendants", "A", map[string]types.AttributeValue{
			"descendants": &types.AttributeValueMemberL{},
		})
		svc := NewDynamoService(client, testDynamoConfig(), nil)
		_, ok := svc.Descendants(ctx, "A")
		assert.False(t, ok)
	})

	t.Run("unconfigured table", func(t *testing.T) {
		client := newMockDDBClient()
		svc := NewDynamoService(client, DynamoConfig{}, nil)
		_, ok := svc.Descendants(ctx, "A")
		assert.False(t, ok)
		assert.Zero(t, client.calls)
	})
}

func TestDynamoService_RateLimiterHonoursCancellation(t *testing.T) {
	client := newMockDDBClient()
	client.put("ontology-descendants", "A", map[string]types.AttributeValue{
		"descendants": &types.AttributeValueMemberSS{Value: []string{"A"}},
	})
	cfg := testDynamoConfig()
	cfg.RequestsPerSecond = 0.001
	svc := NewDynamoService(client, cfg, nil)

	// The first call consumes the single burst token.
	_, ok := svc.Descendants(context.Background(), "A")
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = svc.Descendants(ctx, "A")
	assert.False(t, ok)
	assert.Equal(t, 1, client.calls)
}

func TestDynamoConfig_Defaults(t *testing.T) {
	cfg := DynamoConfig{}.withDefaults()
	assert.Equal(t, "term", cfg.KeyAttribute)
	assert.Equal(t, "anscestors", cfg.AncestorsAttribute)
	assert.Equal(t, "descendants", cfg.DescendantsAttribute)
}
