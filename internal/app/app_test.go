package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/favsync/internal/browser"
	"github.com/JakeFAU/favsync/internal/config"
	"github.com/JakeFAU/favsync/internal/failure"
	"github.com/JakeFAU/favsync/internal/pipeline"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeNotion struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeNotion) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"object":"page","id":"page-1","properties":{"title":{"type":"title","title":[{"type":"text","text":{"content":"Favorites"}}]}}}`)
		case http.MethodPatch:
			_, _ = io.WriteString(w, `{"object":"list","results":[]}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func (f *fakeNotion) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

type fakeSession struct {
	texts  []string
	closed int
}

func (f *fakeSession) Navigate(context.Context, string) error { return nil }

func (f *fakeSession) FindAll(context.Context, string) ([]browser.Element, error) {
	elements := make([]browser.Element, 0, len(f.texts))
	for _, text := range f.texts {
		elements = append(elements, browser.Element{Text: text})
	}
	return elements, nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	for _, name := range []string{config.EnvAPIKey, config.EnvPageID, config.EnvAPIKeyShort, config.EnvPageIDShort} {
		t.Setenv(name, "")
	}
	t.Setenv(config.EnvAPIKey, "secret_test")
	t.Setenv(config.EnvPageID, "page-1")
	t.Setenv("FAVSYNC_NOTION_BASE_URL", baseURL)
	t.Setenv("FAVSYNC_NOTION_MAX_RETRIES", "0")
	t.Setenv("FAVSYNC_LOGGING_LEVEL", "error")
}

func TestNewAppFailsFastWithoutCredentials(t *testing.T) {
	fake := &fakeNotion{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	setupEnv(t, srv.URL)
	t.Setenv(config.EnvPageID, "")

	a, err := NewApp(context.Background(), Options{})
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, failure.KindConfig, failure.KindOf(err))
	assert.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Empty(t, fake.recorded())
}

func TestSyncEndToEnd(t *testing.T) {
	fake := &fakeNotion{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	setupEnv(t, srv.URL)

	a, err := NewApp(context.Background(), Options{})
	require.NoError(t, err)
	defer a.Close()

	session := &fakeSession{texts: []string{"Site A", "Site B"}}
	a.launch = func(context.Context) (pipeline.Session, error) { return session, nil }

	report, err := a.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Favorites", report.Title)
	assert.Equal(t, pipeline.OutcomeSuccess, report.Outcome)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, session.closed)

	reqs := fake.recorded()
	require.Len(t, reqs, 3)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, http.MethodGet, reqs[1].Method)
	assert.Equal(t, http.MethodPatch, reqs[2].Method)
	assert.Equal(t, "/v1/blocks/page-1/children", reqs[2].Path)

	var body struct {
		Children []struct {
			Paragraph struct {
				Text []struct {
					Text struct {
						Content string `json:"content"`
					} `json:"text"`
				} `json:"text"`
			} `json:"paragraph"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal([]byte(reqs[2].Body), &body))
	require.Len(t, body.Children, 2)
	assert.Equal(t, "Site A", body.Children[0].Paragraph.Text[0].Text.Content)
	assert.Equal(t, "Site B", body.Children[1].Paragraph.Text[0].Text.Content)
}

func TestSyncLaunchFailurePropagates(t *testing.T) {
	fake := &fakeNotion{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	setupEnv(t, srv.URL)

	a, err := NewApp(context.Background(), Options{})
	require.NoError(t, err)
	defer a.Close()
	a.launch = func(context.Context) (pipeline.Session, error) {
		return nil, errors.New("exec: \"google-chrome\": executable file not found")
	}

	_, err = a.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.KindLaunch, failure.KindOf(err))

	for _, req := range fake.recorded() {
		assert.NotEqual(t, http.MethodPatch, req.Method)
	}
}

func TestVerifyCommandPath(t *testing.T) {
	fake := &fakeNotion{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	setupEnv(t, srv.URL)

	a, err := NewApp(context.Background(), Options{})
	require.NoError(t, err)
	defer a.Close()

	title, err := a.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Favorites", title)
	assert.Len(t, fake.recorded(), 1)
}

func TestBrowserOptionsMapping(t *testing.T) {
	t.Parallel()

	opts := browserOptions(config.BrowserConfig{
		ExecPath:      "/opt/chrome",
		Headless:      true,
		NoSandbox:     true,
		DisableDevShm: true,
		NavTimeoutSec: 7,
	})
	assert.Equal(t, "/opt/chrome", opts.ExecPath)
	assert.True(t, opts.Headless && opts.NoSandbox && opts.DisableDevShm)
	assert.Equal(t, int64(7), int64(opts.NavigationTimeout.Seconds()))
}
