package ontology

import (
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/time/rate"
)

// DDBClient is the subset of the DynamoDB API used by DynamoService.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoConfig names the two closure tables and their attributes.
//
// Each table has a string partition key holding the term. The closure set is
// stored either as a string set (SS) or a list of strings (L).
type DynamoConfig struct {
	AncestorsTable   string
	DescendantsTable string

	// KeyAttribute is the partition key name. Default "term".
	KeyAttribute string
	// AncestorsAttribute is the set attribute in AncestorsTable.
	// Default "anscestors", the spelling used by the deployed tables.
	AncestorsAttribute string
	// DescendantsAttribute is the set attribute in DescendantsTable.
	// Default "descendants".
	DescendantsAttribute string

	// RequestsPerSecond caps lookups against DynamoDB. 0 means unlimited.
	RequestsPerSecond float64

	// ConsistentRead requests strongly consistent reads.
	ConsistentRead bool
}

func (c DynamoConfig) withDefaults() DynamoConfig {
	if c.KeyAttribute == "" {
		c.KeyAttribute = "term"
	}
	if c.AncestorsAttribute == "" {
		c.AncestorsAttribute = "anscestors"
	}
	if c.DescendantsAttribute == "" {
		c.DescendantsAttribute = "descendants"
	}
	return c
}

// DynamoService reads term closures from DynamoDB with GetItem.
//
// Errors (throttling, timeouts, malformed items) are logged at Warn and
// reported as "not found".
type DynamoService struct {
	client  DDBClient
	cfg     DynamoConfig
	limiter *rate.Limiter // nil if unlimited
	logger  *slog.Logger
}

// NewDynamoService creates a DynamoService. A nil logger discards output.
func NewDynamoService(client DDBClient, cfg DynamoConfig, logger *slog.Logger) *DynamoService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &DynamoService{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

// Ancestors implements Service.
func (s *DynamoService) Ancestors(ctx context.Context, term string) ([]string, bool) {
	return s.get(ctx, s.cfg.AncestorsTable, s.cfg.AncestorsAttribute, term)
}

// Descendants implements Service.
func (s *DynamoService) Descendants(ctx context.Context, term string) ([]string, bool) {
	return s.get(ctx, s.cfg.DescendantsTable, s.cfg.DescendantsAttribute, term)
}

func (s *DynamoService) get(ctx context.Context, table, attr, term string) ([]string, bool) {
	if table == "" || term == "" {
		return nil, false
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("ontology lookup not attempted", "table", table, "term", term, "error", err)
			return nil, false
		}
	}

	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			s.cfg.KeyAttribute: &types.AttributeValueMemberS{Value: term},
		},
		ProjectionExpression:     aws.String("#set"),
		ExpressionAttributeNames: map[string]string{"#set": attr},
		ConsistentRead:           aws.Bool(s.cfg.ConsistentRead),
	})
	if err != nil {
		s.logger.Warn("ontology lookup failed", "table", table, "term", term, "error", err)
		return nil, false
	}
	if len(resp.Item) == 0 {
		return nil, false
	}

	terms, ok := stringSet(resp.Item[attr])
	if !ok {
		s.logger.Warn("ontology item has unexpected shape", "table", table, "term", term, "attribute", attr)
		return nil, false
	}
	set := normalizeSet(terms)
	if set == nil {
		return nil, false
	}
	return set, true
}

// stringSet extracts strings from an SS or an L of S attribute.
func stringSet(av types.AttributeValue) ([]string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberSS:
		return v.Value, true
	case *types.AttributeValueMemberL:
		out := make([]string, 0, len(v.Value))
		for _, el := range v.Value {
			s, ok := el.(*types.AttributeValueMemberS)
			if !ok {
				return nil, false
			}
			out = append(out, s.Value)
		}
		return out, true
	default:
		return nil, false
	}
}
