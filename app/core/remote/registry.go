package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"brainforge/app/pkg/logger"
)

const cardPath = "/.well-known/agent-card.json"

// Endpoint is a resolved worker: its configured base URL plus the card it
// served during the handshake. Shared read-only once cached.
type Endpoint struct {
	Role     string
	URL      string
	CardName string
}

type roleEntry struct {
	url string

	mu sync.Mutex
	ep *Endpoint
}

// Registry resolves worker roles to endpoints. The card handshake happens
// lazily on first resolution per role and only a successful handshake is
// cached, so a down worker is re-probed on the next call attempt.
type Registry struct {
	client  *http.Client
	entries map[string]*roleEntry
}

func NewRegistry(urls map[string]string, handshakeTimeout time.Duration) *Registry {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	entries := make(map[string]*roleEntry, len(urls))
	for role, url := range urls {
		entries[role] = &roleEntry{url: url}
	}
	return &Registry{
		client:  &http.Client{Timeout: handshakeTimeout},
		entries: entries,
	}
}

func (r *Registry) Resolve(ctx context.Context, role string) (*Endpoint, error) {
	entry, ok := r.entries[role]
	if !ok {
		return nil, fmt.Errorf("unknown worker role: %s", role)
	}

	// Per-role lock: concurrent first use performs exactly one handshake
	// and does not block resolution of other roles.
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ep != nil {
		return entry.ep, nil
	}

	ep, err := r.handshake(ctx, role, entry.url)
	if err != nil {
		return nil, err
	}
	entry.ep = ep
	logger.Info("Discovered worker %s at %s (card: %s)", role, entry.url, ep.CardName)
	return ep, nil
}

func (r *Registry) handshake(ctx context.Context, role string, url string) (*Endpoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+cardPath, nil)
	if err != nil {
		return nil, &UnreachableError{Role: role, URL: url, Cause: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &UnreachableError{Role: role, URL: url, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &UnreachableError{Role: role, URL: url, Cause: fmt.Errorf("card fetch returned status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{Role: role, URL: url, Cause: err}
	}
	card := gjson.ParseBytes(data)
	if !card.IsObject() {
		return nil, &UnreachableError{Role: role, URL: url, Cause: fmt.Errorf("card is not a JSON object")}
	}
	return &Endpoint{
		Role:     role,
		URL:      url,
		CardName: card.Get("name").String(),
	}, nil
}
