// Package knowledge searches the external fact store (Qdrant). Lookups are
// best effort: the timeline assembler decides whether a failure matters.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/time/rate"

	"github.com/unitecrm/unite/internal/config"
)

const defaultSearchLimit = 10

// Fact is one knowledge-store entry about a contact.
type Fact struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Source  string `json:"source,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// Client is a read-only fact-store client. Queries are rate limited so a
// chatty timeline caller cannot saturate the store.
type Client struct {
	client     *qdrant.Client
	collection string
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient connects to the fact store described by cfg.
func NewClient(log *slog.Logger, cfg config.QdrantConfig) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	host, port, useTLS, err := parseEndpoint(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, err
	}
	collection := cfg.Collection
	if collection == "" {
		collection = config.DefaultQdrantCollection
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client:     client,
		collection: collection,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		logger:     log.With(slog.String("client", "knowledge")),
	}, nil
}

// Search returns up to limit facts whose text matches query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Fact, error) {
	if c == nil || c.client == nil {
		return []Fact{}, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []Fact{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	points, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: c.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchText("text", query)},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("fact search: %w", err)
	}

	facts := make([]Fact, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		facts = append(facts, Fact{
			ID:      pointIDToString(point.GetId()),
			Text:    payload["text"].GetStringValue(),
			Source:  payload["source"].GetStringValue(),
			Subject: payload["subject"].GetStringValue(),
		})
	}
	return facts, nil
}

func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func parseEndpoint(endpoint string) (string, int, bool, error) {
	if endpoint == "" {
		return "127.0.0.1", 6334, false, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, false, err
	}
	host := parsed.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := 6334
	if parsed.Port() != "" {
		p, err := strconv.Atoi(parsed.Port())
		if err != nil {
			return "", 0, false, err
		}
		port = p
	}
	return host, port, parsed.Scheme == "https", nil
}
