package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
)

type pointsSearcher interface {
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// GRPCClient searches a Qdrant collection over gRPC.
type GRPCClient struct {
	conn       *grpc.ClientConn
	points     pointsSearcher
	collection string
	apiKey     string
	exec       *resilience.Executor
}

func NewGRPC(addr, collection, apiKey string, exec *resilience.Executor) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	client := newGRPCWithPoints(pb.NewPointsClient(conn), collection, apiKey, exec)
	client.conn = conn
	return client, nil
}

func newGRPCWithPoints(points pointsSearcher, collection, apiKey string, exec *resilience.Executor) *GRPCClient {
	return &GRPCClient{points: points, collection: collection, apiKey: apiKey, exec: exec}
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// GRPCStatusError wraps a gRPC failure and exposes its status message.
type GRPCStatusError struct {
	Code    codes.Code
	Message string
	err     error
}

func (e *GRPCStatusError) Error() string {
	return fmt.Sprintf("qdrant grpc search: %s: %s", e.Code, e.Message)
}

func (e *GRPCStatusError) Unwrap() error { return e.err }

func (e *GRPCStatusError) StatusDetail() string { return e.Message }

func (c *GRPCClient) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.Candidate, error) {
	req := &pb.SearchPoints{
		CollectionName: c.collection,
		Vector:         queryVector,
		Limit:          uint64(max(limit, 0)),
		Filter:         buildGRPCFilter(filter),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false}},
	}
	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", c.apiKey)
	}

	resp, err := resilience.Call(ctx, c.exec, "qdrant.grpc_search", func(ctx context.Context) (*pb.SearchResponse, error) {
		resp, err := c.points.Search(ctx, req)
		if err != nil {
			return nil, toStatusError(err)
		}
		return resp, nil
	}, classifyGRPCError)
	if err != nil {
		return nil, resilience.WrapTemporary("qdrant grpc search", err, classifyGRPCError)
	}

	out := make([]domain.Candidate, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		out = append(out, domain.Candidate{
			ID:      grpcPointID(point.GetId()),
			Score:   float64(point.GetScore()),
			Payload: payloadToMap(point.GetPayload()),
		})
	}
	return out, nil
}

func buildGRPCFilter(filter domain.SearchFilter) *pb.Filter {
	out := &pb.Filter{
		MustNot: []*pb.Condition{fieldCondition(docMarkerKey, &pb.Match{
			MatchValue: &pb.Match_Boolean{Boolean: true},
		})},
	}
	if len(filter.Topics) > 0 {
		out.Must = []*pb.Condition{fieldCondition(topicKey, &pb.Match{
			MatchValue: &pb.Match_Keywords{Keywords: &pb.RepeatedStrings{Strings: filter.Topics}},
		})}
	}
	return out
}

func fieldCondition(key string, match *pb.Match) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Match: match},
		},
	}
}

func grpcPointID(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// payloadToMap mirrors JSON decoding: numbers become float64, structs and
// lists become maps and slices.
func payloadToMap(payload map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *pb.Value) any {
	switch kind := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return float64(kind.IntegerValue)
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_StructValue:
		return payloadToMap(kind.StructValue.GetFields())
	case *pb.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, item := range values {
			list = append(list, valueToAny(item))
		}
		return list
	default:
		return nil
	}
}

func toStatusError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &GRPCStatusError{Code: st.Code(), Message: st.Message(), err: err}
}

func classifyGRPCError(err error) resilience.ErrorClassification {
	var statusErr *GRPCStatusError
	if !errors.As(err, &statusErr) {
		return resilience.ClassifyHTTPError(err)
	}
	switch statusErr.Code {
	case codes.Canceled:
		return resilience.ErrorClassification{}
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.DeadlineExceeded:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated:
		return resilience.ErrorClassification{}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}
