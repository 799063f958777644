package store

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/embedder"
)

// Vector space names inside a collection. Every point carries both.
const (
	vectorNLP  = "nlp"
	vectorCode = "code"
)

// Backend is the vector database surface the store needs. Qdrant implements
// it; tests substitute an in-memory fake.
type Backend interface {
	// EnsureCollection creates the named collection with the given vector
	// widths if it does not already exist.
	EnsureCollection(ctx context.Context, name string, nlpDim, codeDim int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	// Upsert writes chunks keyed by their deterministic ids. vectors[i]
	// belongs to chunks[i].
	Upsert(ctx context.Context, collection string, chunks []core.CodeChunk, vectors []embedder.Pair) error
	// Search queries the collection's NLP vector space for its local top-k.
	// Results carry the reconstructed chunk and the raw distance.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]core.SearchResult, error)
	// Count returns the exact number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}

// QdrantBackend implements Backend against a Qdrant instance over gRPC.
type QdrantBackend struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

// NewQdrant connects to Qdrant at host:port.
func NewQdrant(host string, port int) (*QdrantBackend, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantBackend{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

func (b *QdrantBackend) EnsureCollection(ctx context.Context, name string, nlpDim, codeDim int) error {
	exists, err := b.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = b.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{
					Map: map[string]*pb.VectorParams{
						vectorNLP:  {Size: uint64(nlpDim), Distance: pb.Distance_Cosine},
						vectorCode: {Size: uint64(codeDim), Distance: pb.Distance_Cosine},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", core.ErrStore, name, err)
	}
	return nil
}

func (b *QdrantBackend) CollectionExists(ctx context.Context, name string) (bool, error) {
	resp, err := b.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return false, fmt.Errorf("%w: collection exists %s: %v", core.ErrStore, name, err)
	}
	return resp.GetResult().GetExists(), nil
}

func (b *QdrantBackend) Upsert(ctx context.Context, collection string, chunks []core.CodeChunk, vectors []embedder.Pair) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vector pairs", core.ErrStore, len(chunks), len(vectors))
	}

	points := make([]*pb.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: c.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vectors{
				Vectors: &pb.NamedVectors{Vectors: map[string]*pb.Vector{
					vectorNLP:  {Data: vectors[i].NLP},
					vectorCode: {Data: vectors[i].Code},
				}},
			}},
			Payload: chunkPayload(c),
		})
	}

	_, err := b.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", core.ErrStore, collection, err)
	}
	return nil
}

func (b *QdrantBackend) Search(ctx context.Context, collection string, vector []float32, limit int) ([]core.SearchResult, error) {
	vectorName := vectorNLP
	resp, err := b.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		VectorName:     &vectorName,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", core.ErrStore, collection, err)
	}

	results := make([]core.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		chunk := chunkFromPayload(pt.Payload)
		chunk.ID = pt.Id.GetUuid()

		// Cosine similarity back to a distance, then to the score scale.
		distance := float64(1 - pt.Score)
		results[i] = core.SearchResult{
			Chunk:    chunk,
			Distance: distance,
			Score:    1.0 / (1.0 + distance),
		}
	}
	return results, nil
}

func (b *QdrantBackend) Count(ctx context.Context, collection string) (int, error) {
	exact := true
	resp, err := b.points.Count(ctx, &pb.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", core.ErrStore, collection, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (b *QdrantBackend) Close() error {
	return b.conn.Close()
}

var _ Backend = (*QdrantBackend)(nil)
