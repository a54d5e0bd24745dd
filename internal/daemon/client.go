package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/rpc"
)

// StatusError is a non-200 reply from the daemon.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	socketPath string
	httpClient *http.Client
}

func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return net.Dial("unix", socketPath)
				},
			},
			Timeout: 10 * time.Minute, // indexing large assemblies is slow
		},
	}
}

// ConnectOrSpawn tries to connect to the daemon, spawning it if necessary.
func ConnectOrSpawn(socketPath string) (*Client, error) {
	client := NewClient(socketPath)

	if client.IsAvailable() {
		return client, nil
	}

	if err := Spawn(config.LogPath()); err != nil {
		return nil, fmt.Errorf("spawning daemon: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if client.IsAvailable() {
			return client, nil
		}
	}

	return nil, fmt.Errorf("daemon did not start within 5 seconds")
}

func (c *Client) IsAvailable() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Index asks the daemon to index each assembly, streaming progress
// messages to onProgress as they arrive.
func (c *Client) Index(ctx context.Context, assemblies []rpc.AssemblySpec, onProgress func(string)) (*rpc.IndexResponse, error) {
	jsonData, err := json.Marshal(rpc.IndexRequest{Assemblies: assemblies})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "http://unix/index", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daemon returned %d: %s", resp.StatusCode, string(body))
	}

	var result rpc.IndexResponse
	dec := json.NewDecoder(resp.Body)
	for dec.More() {
		var line rpc.ProgressLine
		if err := dec.Decode(&line); err != nil {
			return nil, fmt.Errorf("decoding progress: %w", err)
		}
		switch line.Type {
		case "progress":
			if onProgress != nil {
				onProgress(line.Message)
			}
		case "result":
			if line.Result != nil {
				result.Results = append(result.Results, *line.Result)
			}
		}
	}

	return &result, nil
}

func (c *Client) GetDoc(ctx context.Context, req rpc.GetDocRequest) (*rpc.GetDocResponse, error) {
	var resp rpc.GetDocResponse
	err := c.post(ctx, "/get-doc", req, &resp)
	return &resp, err
}

func (c *Client) Resolve(ctx context.Context, req rpc.ResolveRequest) (*rpc.ResolveResponse, error) {
	var resp rpc.ResolveResponse
	err := c.post(ctx, "/resolve", req, &resp)
	return &resp, err
}

func (c *Client) ListMembers(ctx context.Context, req rpc.ListMembersRequest) (*rpc.ListMembersResponse, error) {
	var resp rpc.ListMembersResponse
	err := c.post(ctx, "/list-members", req, &resp)
	return &resp, err
}

func (c *Client) Unresolved(ctx context.Context, req rpc.UnresolvedRequest) (*rpc.UnresolvedResponse, error) {
	var resp rpc.UnresolvedResponse
	err := c.post(ctx, "/unresolved", req, &resp)
	return &resp, err
}

func (c *Client) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "http://unix/status", nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer httpResp.Body.Close()

	var resp rpc.StatusResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &resp, nil
}

func (c *Client) Remove(ctx context.Context, assembly string) (*rpc.RemoveResponse, error) {
	var resp rpc.RemoveResponse
	err := c.post(ctx, "/remove", rpc.RemoveRequest{Assembly: assembly}, &resp)
	return &resp, err
}

func (c *Client) Prune(ctx context.Context) (*rpc.PruneResponse, error) {
	var resp rpc.PruneResponse
	err := c.post(ctx, "/prune", nil, &resp)
	return &resp, err
}

func (c *Client) Shutdown(ctx context.Context) error {
	var resp map[string]string
	return c.post(ctx, "/shutdown", nil, &resp)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "http://unix"+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: e.Error}
		}
		return &StatusError{Code: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
