package weaviate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate/entities/models"

	"vectorflow/apps/worker/internal/vector"
)

// Client is the narrow surface of the Weaviate SDK used by Store.
type Client interface {
	ListClasses(ctx context.Context) ([]string, error)
	BatchObjects(ctx context.Context, objects []*models.Object) ([]models.ObjectsGetResponse, error)
}

// ClientAdapter implements Client on top of *weaviate.Client.
type ClientAdapter struct {
	Client *weaviate.Client
}

func NewClientAdapter(client *weaviate.Client) *ClientAdapter {
	return &ClientAdapter{Client: client}
}

func (a *ClientAdapter) ListClasses(ctx context.Context) ([]string, error) {
	schema, err := a.Client.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, nil
	}
	classes := make([]string, 0, len(schema.Classes))
	for _, c := range schema.Classes {
		if c != nil {
			classes = append(classes, c.Class)
		}
	}
	return classes, nil
}

func (a *ClientAdapter) BatchObjects(ctx context.Context, objects []*models.Object) ([]models.ObjectsGetResponse, error) {
	return a.Client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
}

// Dialer builds a client for the cluster named in meta.Environment.
type Dialer func(meta vector.Metadata) (Client, error)

// NewSDKDialer authenticates with the API key unless the endpoint is the local marker.
func NewSDKDialer(settings vector.Settings) Dialer {
	return func(meta vector.Metadata) (Client, error) {
		cfg, err := clientConfig(settings, meta.Environment)
		if err != nil {
			return nil, err
		}
		client, err := weaviate.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewClientAdapter(client), nil
	}
}

func clientConfig(settings vector.Settings, environment string) (weaviate.Config, error) {
	raw := environment
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return weaviate.Config{}, fmt.Errorf("invalid weaviate endpoint %q: %w", environment, err)
	}
	if u.Host == "" {
		return weaviate.Config{}, fmt.Errorf("invalid weaviate endpoint %q: missing host", environment)
	}

	cfg := weaviate.Config{Host: u.Host, Scheme: u.Scheme}
	if !settings.IsLocal(environment) {
		cfg.AuthConfig = auth.ApiKey{Value: settings.APIKey}
	}
	return cfg, nil
}
