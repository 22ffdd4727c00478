package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pinecone-io/go-pinecone/v2/pinecone"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"vectorflow/apps/worker/internal/vector"
)

// localAPIKey is accepted by the Pinecone local emulator, which ignores auth.
const localAPIKey = "pclocal"

// IndexConn is the data-plane subset of *pinecone.IndexConnection used by Store.
type IndexConn interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	Close() error
}

// Connector opens a connection to the index named in meta.
// A missing index must be reported as a vector.ReasonMissingIndex error.
type Connector interface {
	Connect(ctx context.Context, meta vector.Metadata) (IndexConn, error)
}

type Store struct {
	settings  vector.Settings
	connector Connector
}

func NewStore(settings vector.Settings, connector Connector) *Store {
	if connector == nil {
		connector = NewSDKConnector(settings)
	}
	return &Store{settings: settings, connector: connector}
}

func (s *Store) Type() vector.BackendType {
	return vector.Pinecone
}

func (s *Store) Upload(ctx context.Context, records []vector.Record, meta vector.Metadata) (int, error) {
	conn, err := s.connector.Connect(ctx, meta)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open pinecone index", "index", meta.IndexName, "environment", meta.Environment, "error", err)
		return 0, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close pinecone connection", "error", cerr)
		}
	}()

	slog.InfoContext(ctx, "starting pinecone upsert", "vectors", len(records), "index", meta.IndexName)

	uploaded, err := vector.UpsertSequential(ctx, vector.Pinecone, records, s.settings.BatchSize,
		func(ctx context.Context, _ int, chunk []vector.Record) (int, error) {
			vecs, err := toVectors(chunk)
			if err != nil {
				return 0, err
			}
			count, err := conn.UpsertVectors(ctx, vecs)
			if err != nil {
				return 0, err
			}
			return int(count), nil
		})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "successfully uploaded vectors to pinecone", "vectors", uploaded)
	return uploaded, nil
}

func toVectors(chunk []vector.Record) ([]*pinecone.Vector, error) {
	vecs := make([]*pinecone.Vector, 0, len(chunk))
	for _, r := range chunk {
		fields := make(map[string]interface{}, len(r.Payload))
		for k, v := range r.Payload {
			fields[k] = v
		}
		md, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("metadata for %s: %w", r.ID, err)
		}
		vecs = append(vecs, &pinecone.Vector{
			Id:       r.ID,
			Values:   r.Vector,
			Metadata: md,
		})
	}
	return vecs, nil
}

// SDKConnector resolves index hosts through the Pinecone control plane.
type SDKConnector struct {
	settings vector.Settings
}

func NewSDKConnector(settings vector.Settings) *SDKConnector {
	return &SDKConnector{settings: settings}
}

func (c *SDKConnector) Connect(ctx context.Context, meta vector.Metadata) (IndexConn, error) {
	local := c.settings.IsLocal(meta.Environment)

	params := pinecone.NewClientParams{ApiKey: c.settings.APIKey}
	var dialOpts []grpc.DialOption
	if local {
		params = pinecone.NewClientParams{ApiKey: localAPIKey, Host: meta.Environment}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	pc, err := pinecone.NewClient(params)
	if err != nil {
		return nil, vector.NewUploadError(vector.Pinecone, vector.ReasonUnavailable, err)
	}

	idx, err := pc.DescribeIndex(ctx, meta.IndexName)
	if err != nil {
		reason := vector.ReasonUnavailable
		if isNotFound(err) {
			reason = vector.ReasonMissingIndex
		}
		return nil, vector.NewUploadError(vector.Pinecone, reason,
			fmt.Errorf("index %s does not exist in environment %s: %w", meta.IndexName, meta.Environment, err))
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: idx.Host}, dialOpts...)
	if err != nil {
		return nil, vector.NewUploadError(vector.Pinecone, vector.ReasonUnavailable, err)
	}
	return conn, nil
}

func isNotFound(err error) bool {
	var pe *pinecone.PineconeError
	return errors.As(err, &pe) && pe.Code == http.StatusNotFound
}
