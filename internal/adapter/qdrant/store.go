package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"vectorflow/apps/worker/internal/vector"
)

// Client is the subset of *qdrant.Client used by Store.
type Client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Close() error
}

// Dialer builds a client for the cluster named in meta.Environment.
type Dialer func(meta vector.Metadata) (Client, error)

type Store struct {
	settings vector.Settings
	timeout  time.Duration
	dial     Dialer
}

func NewStore(settings vector.Settings, timeout time.Duration, dial Dialer) *Store {
	return &Store{settings: settings, timeout: timeout, dial: dial}
}

func (s *Store) Type() vector.BackendType {
	return vector.Qdrant
}

func (s *Store) Upload(ctx context.Context, records []vector.Record, meta vector.Metadata) (int, error) {
	client, err := s.dial(meta)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create qdrant client", "environment", meta.Environment, "error", err)
		return 0, vector.NewUploadError(vector.Qdrant, vector.ReasonUnavailable, err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close qdrant client", "error", cerr)
		}
	}()

	existsCtx, cancel := context.WithTimeout(ctx, s.timeout)
	exists, err := client.CollectionExists(existsCtx, meta.IndexName)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to check qdrant collection", "collection", meta.IndexName, "error", err)
		return 0, vector.NewUploadError(vector.Qdrant, vector.ReasonUnavailable, err)
	}
	if !exists {
		slog.ErrorContext(ctx, "collection does not exist", "collection", meta.IndexName, "cluster", meta.Environment)
		return 0, vector.NewUploadError(vector.Qdrant, vector.ReasonMissingIndex,
			fmt.Errorf("collection %s does not exist at %s", meta.IndexName, meta.Environment))
	}

	slog.InfoContext(ctx, "starting qdrant upsert", "vectors", len(records), "collection", meta.IndexName)

	wait := true
	_, err = vector.UpsertSequential(ctx, vector.Qdrant, records, s.settings.BatchSize,
		func(ctx context.Context, _ int, chunk []vector.Record) (int, error) {
			points, err := toPoints(chunk)
			if err != nil {
				return 0, err
			}
			upsertCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if _, err := client.Upsert(upsertCtx, &qdrant.UpsertPoints{
				CollectionName: meta.IndexName,
				Wait:           &wait,
				Points:         points,
			}); err != nil {
				return 0, err
			}
			return len(chunk), nil
		})
	if err != nil {
		return 0, err
	}

	// Qdrant reports no per-point count; a clean run means every record landed.
	slog.InfoContext(ctx, "successfully uploaded vectors to qdrant", "vectors", len(records))
	return len(records), nil
}

func toPoints(chunk []vector.Record) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, 0, len(chunk))
	for _, r := range chunk {
		fields := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			fields[k] = v
		}
		payload, err := qdrant.TryValueMap(fields)
		if err != nil {
			return nil, fmt.Errorf("payload for %s: %w", r.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(r.ID),
			Vectors: qdrant.NewVectorsDense(r.Vector),
			Payload: payload,
		})
	}
	return points, nil
}

// NewSDKDialer connects over gRPC, the only transport the Go client speaks, so
// local and remote endpoints both dial grpcPort and any port in the endpoint is
// replaced. They differ in auth and TLS: the local endpoint uses plaintext
// without an API key, any other endpoint sends the API key and uses TLS when its
// scheme is https.
func NewSDKDialer(settings vector.Settings, grpcPort int) Dialer {
	return func(meta vector.Metadata) (Client, error) {
		cfg, err := clientConfig(settings, grpcPort, meta.Environment)
		if err != nil {
			return nil, err
		}
		client, err := qdrant.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func clientConfig(settings vector.Settings, grpcPort int, environment string) (*qdrant.Config, error) {
	raw := environment
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant endpoint %q: %w", environment, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant endpoint %q: missing host", environment)
	}

	cfg := &qdrant.Config{
		Host:                   u.Hostname(),
		Port:                   grpcPort,
		PoolSize:               1,
		SkipCompatibilityCheck: true,
	}
	if !settings.IsLocal(environment) {
		cfg.APIKey = settings.APIKey
		cfg.UseTLS = u.Scheme == "https"
	}
	return cfg, nil
}
