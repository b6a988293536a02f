// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api is the HTTP client for the auth, project, generation and
// export services. Every call takes the caller's session explicitly and
// maps HTTP failures to apperr kinds.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/httputil"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// Endpoint paths, relative to the client's base URL.
var (
	registerPath = "/auth/register"
	tokenPath    = "/auth/token"
	projectsPath = "/projects"
	generatePath = "/generation/generate"
	refinePath   = "/generation/refine"
	exportPath   = "/export"
)

// maxArtifactSize bounds the size of an export response. Larger artifacts
// are rejected rather than truncated.
var maxArtifactSize int64 = 256 << 20

// Client talks to the services rooted at BaseURL.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	UserAgent  string
	MaxRetries int
}

// New returns a client configured from cfg.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	req, err := c.newJSONRequest(ctx, http.MethodPost, registerPath, body)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req, apperr.KindInternal, false)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// tokenResponse is the body returned by the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.send(ctx, req, apperr.KindUnauthorized, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnauthorized, "parsing token response")
	}
	return session.New(tr.AccessToken, email)
}

// CreateProject persists a draft and returns the full project.
func (c *Client) CreateProject(ctx context.Context, sess *session.Session, draft types.ProjectDraft) (*types.Project, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, projectsPath, draft)
	if err != nil {
		return nil, err
	}
	var p types.Project
	if err := c.doJSON(ctx, sess, req, apperr.KindInternal, false, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context, sess *session.Session) ([]types.Project, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, projectsPath, nil)
	if err != nil {
		return nil, err
	}
	var projects []types.Project
	if err := c.doJSON(ctx, sess, req, apperr.KindInternal, true, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches one project including its sections.
func (c *Client) GetProject(ctx context.Context, sess *session.Session, id int64) (*types.Project, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%d", projectsPath, id), nil)
	if err != nil {
		return nil, err
	}
	var p types.Project
	if err := c.doJSON(ctx, sess, req, apperr.KindInternal, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GenerateAll asks the generation service to write every section of a
// project. The response is only an acknowledgement.
func (c *Client) GenerateAll(ctx context.Context, sess *session.Session, projectID int64) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, generatePath, map[string]int64{"project_id": projectID})
	if err != nil {
		return err
	}
	var ack struct {
		Message string `json:"message"`
	}
	return c.doJSON(ctx, sess, req, apperr.KindGeneration, false, &ack)
}

// Refine asks the generation service to rewrite one section and returns
// the refined text it reports.
func (c *Client) Refine(ctx context.Context, sess *session.Session, sectionID int64, instruction string) (string, error) {
	body := struct {
		SectionID   int64  `json:"section_id"`
		Instruction string `json:"instruction"`
	}{sectionID, instruction}
	req, err := c.newJSONRequest(ctx, http.MethodPost, refinePath, body)
	if err != nil {
		return "", err
	}
	var out struct {
		RefinedContent string `json:"refined_content"`
	}
	if err := c.doJSON(ctx, sess, req, apperr.KindGeneration, false, &out); err != nil {
		return "", err
	}
	return out.RefinedContent, nil
}

// Export downloads the rendered artifact for a project.
func (c *Client) Export(ctx context.Context, sess *session.Session, projectID int64) (*types.Artifact, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%d", exportPath, projectID), nil)
	if err != nil {
		return nil, err
	}
	if err := sess.Authorize(req); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, req, apperr.KindExport, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxArtifactSize {
		return nil, apperr.Newf(apperr.KindExport, "artifact is %d bytes, limit is %d", resp.ContentLength, maxArtifactSize)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize+1))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindExport, "reading artifact")
	}
	if int64(len(data)) > maxArtifactSize {
		return nil, apperr.Newf(apperr.KindExport, "artifact exceeds %d bytes", maxArtifactSize)
	}
	if resp.ContentLength >= 0 && int64(len(data)) != resp.ContentLength {
		return nil, apperr.Newf(apperr.KindExport, "artifact truncated: got %d of %d bytes", len(data), resp.ContentLength)
	}

	art := &types.Artifact{Data: data}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		art.MediaType = mt
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		art.Filename = params["filename"]
	}
	return art, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON authorizes req, sends it and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, sess *session.Session, req *http.Request, fallback apperr.Kind, idempotent bool, out any) error {
	if err := sess.Authorize(req); err != nil {
		return err
	}
	resp, err := c.send(ctx, req, fallback, idempotent)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(err, fallback, "parsing response from "+req.URL.Path)
	}
	return nil
}

// send performs req and converts transport failures and error statuses to
// apperr values. Only idempotent requests are retried on HTTP 429.
func (c *Client) send(ctx context.Context, req *http.Request, fallback apperr.Kind, idempotent bool) (*http.Response, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	ctx = logger.WithContext(ctx, logger.RequestIDKey, requestID)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	var (
		resp *http.Response
		err  error
	)
	if idempotent {
		resp, err = httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	} else {
		resp, err = client.Do(req)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.Wrap(err, fallback, req.Method+" "+req.URL.Path)
	}
	logger.Debug(ctx, "service call",
		"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		msg := httputil.ReadErrorMessage(resp)
		return nil, apperr.New(apperr.FromStatus(resp.StatusCode, fallback), msg)
	}
	return resp, nil
}
