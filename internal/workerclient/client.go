// Package workerclient is the HTTP client used both by the scheduler's
// dispatcher to reach a worker's /jobs endpoint and by the CLI's
// client subcommand to reach the scheduler's /jobs, /mols, and /nodes
// endpoints — the same "post JSON, decode JSON" primitive either way, the
// way the source's single Client type backs both roles.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kestrelsched/remote/internal/job"
)

// Client posts JSON payloads to a remote address and decodes JSON replies.
// Its HTTP client has no request timeout: job runtime is unbounded.
type Client struct {
	http *http.Client
	base string
}

// Connect builds a Client targeting http://address.
func Connect(address string) *Client {
	return &Client{
		http: &http.Client{Timeout: 0},
		base: "http://" + address,
	}
}

// Post sends payload as a JSON body to POST {base}/{endpoint} and returns
// the raw response body.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("workerclient: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.base, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("workerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workerclient: post %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("workerclient: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("workerclient: %s returned %d: %s", url, resp.StatusCode, body)
	}
	return body, nil
}

// PostJob posts a Job to the "jobs" endpoint and decodes the
// ComputationResult reply. Used by the scheduler's dispatcher against a
// worker address.
func (c *Client) PostJob(ctx context.Context, j job.Job) (job.ComputationResult, error) {
	body, err := c.Post(ctx, "jobs", j)
	if err != nil {
		return job.ComputationResult{}, err
	}
	var result job.ComputationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return job.ComputationResult{}, fmt.Errorf("workerclient: decode ComputationResult: %w", err)
	}
	return result, nil
}

// RunCmd composes a job.RunCmd job and posts it. Used by the CLI's
// `client run` subcommand against the scheduler.
func (c *Client) RunCmd(ctx context.Context, cmd, wrkDir string) (job.ComputationResult, error) {
	return c.PostJob(ctx, job.RunCmd(cmd, wrkDir))
}

// AddNode posts a bare node string to the "nodes" endpoint.
func (c *Client) AddNode(ctx context.Context, node string) error {
	_, err := c.Post(ctx, "nodes", node)
	return err
}

// ComputeMolecule posts a Molecule to the "mols" endpoint and decodes the
// Computed reply.
func (c *Client) ComputeMolecule(ctx context.Context, mol job.Molecule) (job.Computed, error) {
	body, err := c.Post(ctx, "mols", mol)
	if err != nil {
		return nil, err
	}
	return job.Computed(body), nil
}
