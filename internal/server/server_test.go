package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kas-container/internal/app"
	"kas-container/internal/types"
)

type blockingRunner struct {
	mu       sync.Mutex
	requests []app.PipelineRequest
	release  chan struct{}
	err      error
}

func (r *blockingRunner) Pipeline(_ context.Context, req app.PipelineRequest) (app.PipelineResult, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return app.PipelineResult{}, r.err
	}
	return app.PipelineResult{Publish: app.PublishResult{Plan: types.PublishPlan{Publish: true}}}, nil
}

type recordingSource struct {
	mu     sync.Mutex
	synced []string
	err    error
}

func (s *recordingSource) CurrentBranch(string) (string, error) { return "", nil }

func (s *recordingSource) ExactTag(string) (string, bool, error) { return "", false, nil }

func (s *recordingSource) Sync(_ context.Context, _ string, revision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, revision)
	return s.err
}

func pushRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hooks/push", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPushRunsPipelineForBranch(t *testing.T) {
	runner := &blockingRunner{}
	source := &recordingSource{}
	srv := New(context.Background(), Config{SourceDir: "/src/kas"}, runner, source)

	resp, err := srv.App().Test(pushRequest(t, `{"ref":"refs/heads/master","after":"abc123"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.Wait()

	assert.Equal(t, []string{"abc123"}, source.synced)
	require.Len(t, runner.requests, 1)
	assert.Equal(t, "master", runner.requests[0].Publish.Branch)
	assert.Empty(t, runner.requests[0].Publish.Tag)
	assert.Equal(t, "/src/kas", runner.requests[0].Publish.SourceDir)
}

func TestPushTagUsesBaseRef(t *testing.T) {
	runner := &blockingRunner{}
	srv := New(context.Background(), Config{}, runner, nil)

	resp, err := srv.App().Test(pushRequest(t, `{"ref":"refs/tags/4.5","base_ref":"refs/heads/master","after":"abc123"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.Wait()

	require.Len(t, runner.requests, 1)
	assert.Equal(t, "master", runner.requests[0].Publish.Branch)
	assert.Equal(t, "4.5", runner.requests[0].Publish.Tag)
}

func TestPushBranchDropsConfiguredTag(t *testing.T) {
	runner := &blockingRunner{}
	cfg := Config{Request: app.PipelineRequest{Publish: app.PublishRequest{Tag: "4.5"}}}
	srv := New(context.Background(), cfg, runner, nil)

	resp, err := srv.App().Test(pushRequest(t, `{"ref":"refs/heads/next","after":"abc123"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.Wait()

	require.Len(t, runner.requests, 1)
	assert.Equal(t, "next", runner.requests[0].Publish.Branch)
	assert.Empty(t, runner.requests[0].Publish.Tag)
}

func TestPushRejectsConcurrentRun(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	srv := New(context.Background(), Config{}, runner, nil)

	resp, err := srv.App().Test(pushRequest(t, `{"ref":"refs/heads/master"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = srv.App().Test(pushRequest(t, `{"ref":"refs/heads/next"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(runner.release)
	srv.Wait()

	resp, err = srv.App().Test(pushRequest(t, `{"ref":"refs/heads/next"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.Wait()
	assert.Len(t, runner.requests, 2)
}

func TestPushRejectsBadEvents(t *testing.T) {
	srv := New(context.Background(), Config{}, &blockingRunner{}, nil)
	for _, body := range []string{`{"ref":"refs/pull/1/head"}`, `{}`, `not json`} {
		resp, err := srv.App().Test(pushRequest(t, body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestPushChecksSignature(t *testing.T) {
	runner := &blockingRunner{}
	srv := New(context.Background(), Config{Secret: "s3cret"}, runner, nil)
	body := `{"ref":"refs/heads/master"}`

	resp, err := srv.App().Test(pushRequest(t, body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(body))
	req := pushRequest(t, body)
	req.Header.Set(signatureHeader, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.Wait()
	assert.Len(t, runner.requests, 1)
}

func TestHealthReportsLastRun(t *testing.T) {
	runner := &blockingRunner{err: errors.New("build failed")}
	source := &recordingSource{}
	srv := New(context.Background(), Config{SourceDir: "/src/kas"}, runner, source)

	resp, err := srv.App().Test(pushRequest(t, `{"ref":"refs/heads/master"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.Wait()
	// Without a commit id the ref itself is checked out.
	assert.Equal(t, []string{"refs/heads/master"}, source.synced)

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var health struct {
		Status string    `json:"status"`
		Busy   bool      `json:"busy"`
		Last   runStatus `json:"last"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Busy)
	assert.Equal(t, "refs/heads/master", health.Last.Ref)
	assert.Equal(t, "build failed", health.Last.Error)
}
