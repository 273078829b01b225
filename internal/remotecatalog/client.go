// Package remotecatalog is the catalog backend that talks to the platform's
// artifact REST API.
package remotecatalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"

	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// DefaultTimeout bounds every request unless overridden with WithTimeout.
const DefaultTimeout = 10 * time.Second

// extension is one plugin as listed by the extensions endpoint.
type extension struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	ClassName   string            `json:"className"`
	Artifact    pipeline.Artifact `json:"artifact"`
}

// Client implements catalog.Backend over HTTP.
type Client struct {
	http      *resty.Client
	namespace string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// New creates a client for the API rooted at baseURL, scoped to namespace.
func New(baseURL, namespace string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
		namespace: namespace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// Artifacts lists the artifacts visible in the namespace.
func (c *Client) Artifacts(ctx context.Context) ([]pipeline.Artifact, error) {
	var out []pipeline.Artifact
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("namespace", c.namespace).
		SetResult(&out).
		Get("/v3/namespaces/{namespace}/artifacts")
	if err := check(resp, err, "listing artifacts"); err != nil {
		return nil, err
	}
	return out, nil
}

// Plugins lists the plugins of one type available to the pipeline
// artifact.
func (c *Client) Plugins(ctx context.Context, artifact pipeline.Artifact, pluginType pipeline.PluginType) ([]pipeline.PluginDescriptor, error) {
	extType := pipeline.ExtensionType(artifact.Name, pluginType)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Fetching plugins.", "artifact", artifact.String(), "extension_type", extType)

	var exts []extension
	req := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"namespace": c.namespace,
			"artifact":  artifact.Name,
			"version":   artifact.Version,
			"extType":   extType,
		}).
		SetResult(&exts)
	if artifact.Scope != "" {
		req.SetQueryParam("scope", artifact.Scope)
	}
	resp, err := req.Get("/v3/namespaces/{namespace}/artifacts/{artifact}/versions/{version}/extensions/{extType}")
	if err := check(resp, err, fmt.Sprintf("listing %s plugins", extType)); err != nil {
		return nil, err
	}

	out := make([]pipeline.PluginDescriptor, 0, len(exts))
	for _, e := range exts {
		out = append(out, pipeline.PluginDescriptor{
			Name:        e.Name,
			Type:        pluginType,
			Artifact:    e.Artifact,
			Icon:        pipeline.IconFor(e.Name),
			Description: e.Description,
			Properties:  map[string]any{},
		})
	}
	logger.Debug("Fetched plugins.", "extension_type", extType, "count", len(out))
	return out, nil
}

// check classifies transport failures and error statuses.
func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", catalog.ErrNetwork, op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, op)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s: unexpected status %d", catalog.ErrNetwork, op, resp.StatusCode())
	}
	return nil
}

var _ catalog.Backend = (*Client)(nil)
