package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements VectorStore using a single Qdrant collection for the
// regulation corpus.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url, collection string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if collection == "" {
		collection = "regulations"
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection if it does not already exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert inserts or updates embedded chunks.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := map[string]*qdrant.Value{
			"source":  qdrant.NewValueString(p.Source),
			"content": qdrant.NewValueString(p.Content),
		}
		if p.Page > 0 {
			payload["page"] = qdrant.NewValueInt(int64(p.Page))
		}
		if p.Title != "" {
			payload["title"] = qdrant.NewValueString(p.Title)
		}

		qPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         qPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// MMRSearch fetches fetchK nearest points with their stored vectors and
// selects k of them by Maximal Marginal Relevance.
func (s *QdrantStore) MMRSearch(ctx context.Context, vector []float32, k, fetchK int, lambda float32) ([]Candidate, error) {
	if fetchK < k {
		fetchK = k
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(fetchK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	entries := make([]scoredVector, 0, len(response))
	for _, point := range response {
		entry := scoredVector{
			Candidate: Candidate{
				ID:    point.Id.GetUuid(),
				Score: point.Score,
			},
		}

		if payload := point.Payload; payload != nil {
			if v, ok := payload["source"]; ok {
				entry.Candidate.Source = v.GetStringValue()
			}
			if v, ok := payload["content"]; ok {
				entry.Candidate.Content = v.GetStringValue()
			}
			if v, ok := payload["title"]; ok {
				entry.Candidate.Title = v.GetStringValue()
			}
			if v, ok := payload["page"]; ok {
				entry.Candidate.Page = int(v.GetIntegerValue())
			}
		}

		if vectors := point.Vectors; vectors != nil {
			if dense := vectors.GetVector(); dense != nil {
				entry.Vector = dense.GetData()
			}
		}

		entries = append(entries, entry)
	}

	return selectMMR(entries, k, lambda), nil
}

// Delete removes every chunk whose source filename matches.
func (s *QdrantStore) Delete(ctx context.Context, source string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("source", source),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete by source: %w", err)
	}

	return nil
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)
