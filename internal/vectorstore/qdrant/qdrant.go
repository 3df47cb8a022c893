package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"shopbot/internal/domain"
	"shopbot/internal/vectorstore"
)

const (
	payloadID   = "doc_id"
	payloadText = "text"
	payloadSeq  = "seq"
	metaPrefix  = "meta_"
	scrollPage  = 256
)

// Storage is a Qdrant-backed document store speaking gRPC.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	apiKey      string
	timeout     time.Duration

	mu        sync.Mutex
	dimension int
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStorage dials Qdrant. The connection is lazy; errors surface on Init.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "gwangjin_shops"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Storage{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		apiKey:      cfg.APIKey,
		timeout:     timeout,
	}, nil
}

func (s *Storage) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	if s.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
	}
	return ctx, cancel
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()

	exists, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("qdrant collection exists: %w", err)
	}
	if !exists.GetResult().GetExists() {
		_, err = s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: uint64(dimension), Distance: pb.Distance_Cosine},
			}},
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
		}
	} else {
		info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection})
		if err != nil {
			return fmt.Errorf("qdrant collection info %s: %w", s.collection, err)
		}
		if err := checkVectorSize(s.collection, info.GetResult(), dimension); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.dimension = dimension
	s.mu.Unlock()
	return nil
}

func (s *Storage) Add(ctx context.Context, doc domain.Document) error {
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	if dim == 0 {
		return errors.New("store not initialized")
	}
	if len(doc.Embedding) != dim {
		return errors.New("vector dimension mismatch")
	}
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(doc.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: doc.Embedding}}},
			Payload: toPayload(doc),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()

	// One extra hit lets a tie at the cut-off be resolved by seq.
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK + 1),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		results = append(results, domain.SearchResult{Document: fromPayload(pt.GetPayload()), Score: float64(pt.GetScore())})
	}
	vectorstore.SortResults(results)
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) List(ctx context.Context) ([]domain.Document, error) {
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()

	var out []domain.Document
	var offset *pb.PointId
	limit := uint32(scrollPage)
	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}
		for _, pt := range resp.GetResult() {
			out = append(out, fromPayload(pt.GetPayload()))
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	vectorstore.SortBySeq(out)
	return out, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	ctx, cancel := s.rpcContext(ctx)
	defer cancel()

	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (s *Storage) Close() error { return s.conn.Close() }

// checkVectorSize rejects an existing collection whose single unnamed vector
// does not have the embedder's dimension.
func checkVectorSize(collection string, info *pb.CollectionInfo, dimension int) error {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return fmt.Errorf("collection %s has no single unnamed vector", collection)
	}
	if params.GetSize() != uint64(dimension) {
		return fmt.Errorf("collection %s holds %d-dimensional vectors, got %d", collection, params.GetSize(), dimension)
	}
	return nil
}

// pointID maps a document id onto the UUID space Qdrant accepts.
func pointID(docID string) string {
	if id, err := uuid.Parse(strings.TrimPrefix(docID, "doc_")); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String()
}

func toPayload(doc domain.Document) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		payloadID:   {Kind: &pb.Value_StringValue{StringValue: doc.ID}},
		payloadText: {Kind: &pb.Value_StringValue{StringValue: doc.Text}},
		payloadSeq:  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(doc.Seq)}},
	}
	for k, v := range doc.Metadata {
		payload[metaPrefix+k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return payload
}

func fromPayload(payload map[string]*pb.Value) domain.Document {
	doc := domain.Document{Metadata: make(map[string]string)}
	for k, v := range payload {
		switch {
		case k == payloadID:
			doc.ID = v.GetStringValue()
		case k == payloadText:
			doc.Text = v.GetStringValue()
		case k == payloadSeq:
			doc.Seq = int(v.GetIntegerValue())
		case strings.HasPrefix(k, metaPrefix):
			doc.Metadata[strings.TrimPrefix(k, metaPrefix)] = v.GetStringValue()
		}
	}
	return doc
}
