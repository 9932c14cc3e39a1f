package azure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Issued tokens live roughly ten minutes; refresh a minute early so an
// in-flight synthesis never crosses the expiry.
const tokenTTL = 9 * time.Minute

// tokenSource fetches bearer tokens from the Speech token endpoint and
// caches the current one until shortly before it expires. The mutex also
// serializes the fetch itself so concurrent requests don't stampede the
// token endpoint.
type tokenSource struct {
	endpoint   string
	key        string
	httpClient *http.Client

	mu      sync.Mutex
	current string
	expiry  time.Time
	now     func() time.Time
}

func newTokenSource(endpoint, key string, hc *http.Client) *tokenSource {
	return &tokenSource{
		endpoint:   endpoint,
		key:        key,
		httpClient: hc,
		now:        time.Now,
	}
}

func (t *tokenSource) token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != "" && t.now().Before(t.expiry) {
		return t.current, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.key)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	// Any failure here means the key or region is wrong, which the operator
	// has to fix; it is never worth retrying with the same credentials.
	if resp.StatusCode != http.StatusOK {
		_, message := parseErrorBody(body)
		return "", &AuthError{Service: "speech", Status: resp.StatusCode, Message: message}
	}

	t.current = string(body)
	t.expiry = t.now().Add(tokenTTL)
	return t.current, nil
}

// invalidate drops the cached token so the next call re-fetches.
func (t *tokenSource) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = ""
	t.expiry = time.Time{}
}
