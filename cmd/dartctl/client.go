package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	dhttp "github.com/fyrsmithlabs/dartrag/internal/http"
	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
)

// client wraps the dartrag REST API.
type client struct {
	r *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		r: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// apiError is a non-2xx response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

func (c *client) do(method, path string, body, out any, query map[string]string) error {
	var failure dhttp.MessageResponse
	req := c.r.R().SetError(&failure).SetQueryParams(query)
	if out != nil {
		req.SetResult(out)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &apiError{Status: resp.StatusCode(), Message: failure.Message}
	}
	return nil
}

func (c *client) health() (dhttp.HealthResponse, error) {
	var out dhttp.HealthResponse
	return out, c.do(resty.MethodGet, "/health", nil, &out, nil)
}

func (c *client) info() (dhttp.InfoResponse, error) {
	var out dhttp.InfoResponse
	return out, c.do(resty.MethodGet, "/api/v1/info", nil, &out, nil)
}

func (c *client) index(req dhttp.IndexRequest) (dhttp.IndexResponse, error) {
	var out dhttp.IndexResponse
	return out, c.do(resty.MethodPost, "/api/v1/documents/index", req, &out, nil)
}

func (c *client) status(taskID string) (tasks.Task, error) {
	var out tasks.Task
	return out, c.do(resty.MethodGet, "/api/v1/documents/index/"+taskID+"/status", nil, &out, nil)
}

func (c *client) summary(documentID string) (summary.Summary, error) {
	var out summary.Summary
	return out, c.do(resty.MethodGet, "/api/v1/documents/"+documentID+"/summary", nil, &out, nil)
}

func (c *client) chunks(documentID string) (dhttp.ChunksResponse, error) {
	var out dhttp.ChunksResponse
	return out, c.do(resty.MethodGet, "/api/v1/documents/"+documentID+"/chunks", nil, &out, nil)
}

func (c *client) stats() (dhttp.StatsResponse, error) {
	var out dhttp.StatsResponse
	return out, c.do(resty.MethodGet, "/api/v1/documents/stats", nil, &out, nil)
}

func (c *client) remove(documentID string) (dhttp.MessageResponse, error) {
	var out dhttp.MessageResponse
	return out, c.do(resty.MethodDelete, "/api/v1/documents/"+documentID, nil, &out, nil)
}

func (c *client) query(req dhttp.QueryRequest) (dhttp.QueryResponse, error) {
	var out dhttp.QueryResponse
	return out, c.do(resty.MethodPost, "/api/v1/query", req, &out, nil)
}

func (c *client) batch(req dhttp.BatchRequest) (dhttp.BatchResponse, error) {
	var out dhttp.BatchResponse
	return out, c.do(resty.MethodPost, "/api/v1/query/batch", req, &out, nil)
}

func (c *client) followUp(documentID, previous string) (dhttp.FollowUpResponse, error) {
	var out dhttp.FollowUpResponse
	return out, c.do(resty.MethodPost, "/api/v1/query/"+documentID+"/follow-up",
		dhttp.FollowUpRequest{PreviousQuestion: previous}, &out, nil)
}

func (c *client) search(documentID, query string, topK int) (dhttp.SearchResponse, error) {
	var out dhttp.SearchResponse
	return out, c.do(resty.MethodGet, "/api/v1/query/"+documentID+"/search", nil, &out,
		map[string]string{"query": query, "top_k": fmt.Sprint(topK)})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
