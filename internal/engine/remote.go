package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RemoteEngine drives an encoder microservice over HTTP. Blobs live
// server-side under a namespace keyed by the run id, so concurrent runs stay
// isolated without sharing adapter instances.
type RemoteEngine struct {
	httpClient *http.Client
	baseURL    string
	namespace  string
}

// NewRemoteEngine creates an engine bound to one namespace on the encoder
// service at baseURL.
func NewRemoteEngine(baseURL, namespace string, timeout time.Duration) *RemoteEngine {
	return &RemoteEngine{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		namespace:  namespace,
	}
}

// Init checks the encoder service is reachable. Idempotent by nature: the
// health endpoint has no side effects.
func (e *RemoteEngine) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("encoder health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("encoder service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Execute submits one operation and waits for it to finish.
func (e *RemoteEngine) Execute(ctx context.Context, op Operation) error {
	body := struct {
		Namespace string   `json:"namespace"`
		Name      string   `json:"name"`
		Args      []string `json:"args"`
		Output    string   `json:"output"`
	}{e.namespace, op.Name, op.Args, op.Output}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/execute", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: encoder error (status %d): %s", op.Name, resp.StatusCode, string(respBody))
	}
	return nil
}

func (e *RemoteEngine) WriteBlob(name string, data []byte) error {
	req, err := http.NewRequest(http.MethodPut, e.blobURL(name), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to write blob %s: status %d", name, resp.StatusCode)
	}
	return nil
}

func (e *RemoteEngine) ReadBlob(name string) ([]byte, error) {
	resp, err := e.httpClient.Get(e.blobURL(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to read blob %s: status %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (e *RemoteEngine) ListNamespace() ([]string, error) {
	resp, err := e.httpClient.Get(fmt.Sprintf("%s/blobs/%s", e.baseURL, url.PathEscape(e.namespace)))
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list namespace: status %d", resp.StatusCode)
	}

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, fmt.Errorf("failed to decode namespace listing: %w", err)
	}
	return names, nil
}

func (e *RemoteEngine) DeleteBlob(name string) error {
	req, err := http.NewRequest(http.MethodDelete, e.blobURL(name), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete blob %s: status %d", name, resp.StatusCode)
	}
	return nil
}

// Teardown deletes the whole server-side namespace.
func (e *RemoteEngine) Teardown(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/blobs/%s", e.baseURL, url.PathEscape(e.namespace)), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to tear down namespace: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to tear down namespace: status %d", resp.StatusCode)
	}
	return nil
}

func (e *RemoteEngine) blobURL(name string) string {
	return fmt.Sprintf("%s/blobs/%s/%s", e.baseURL, url.PathEscape(e.namespace), url.PathEscape(name))
}

var _ Engine = (*RemoteEngine)(nil)
