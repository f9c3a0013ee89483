// Package encryptor calls the external threshold-encryption service that
// hides a position's direction until market resolution. The engine only
// consumes it; a failure aborts the single execution attempt in progress.
package encryptor

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Encrypter produces a ciphertext for a directional bet.
type Encrypter interface {
	EncryptDirection(ctx context.Context, direction bool) ([]byte, error)
}

// HTTPEncrypter calls the threshold-encryption RPC over HTTP.
type HTTPEncrypter struct {
	endpoint string
	client   *http.Client
}

// NewHTTP creates an Encrypter against the given RPC endpoint.
func NewHTTP(endpoint string) *HTTPEncrypter {
	return &HTTPEncrypter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *HTTPEncrypter) EncryptDirection(ctx context.Context, direction bool) ([]byte, error) {
	body, err := json.Marshal(map[string]any{"direction": direction})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encrypt direction: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("encrypt direction read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("encrypt direction: status %d: %s", resp.StatusCode, respBody)
	}

	var out struct {
		Ciphertext string `json:"ciphertext"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("encrypt direction decode: %w", err)
	}
	ct, err := hex.DecodeString(trimHexPrefix(out.Ciphertext))
	if err != nil {
		return nil, fmt.Errorf("encrypt direction: bad ciphertext: %w", err)
	}
	if len(ct) == 0 {
		return nil, fmt.Errorf("encrypt direction: empty ciphertext")
	}
	return ct, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Mock returns a fixed ciphertext, or fails if Err is set.
type Mock struct {
	Err   error
	Calls int
}

func (m *Mock) EncryptDirection(_ context.Context, direction bool) ([]byte, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if direction {
		return []byte{0x01}, nil
	}
	return []byte{0x00}, nil
}
