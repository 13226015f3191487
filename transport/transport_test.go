package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/profilez"
	"github.com/zoobzio/profilez/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	traces, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = traces.Close() })

	srv := httptest.NewServer(NewServer(traces, nil))
	t.Cleanup(srv.Close)
	return srv, traces
}

func TestUploadListGet(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/traces/systrace", "application/json", strings.NewReader(`{"traceEvents":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id := created["id"]
	require.NotEmpty(t, id)

	listResp, err := http.Get(srv.URL + "/traces")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var metas []store.Meta
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&metas))
	require.Len(t, metas, 1)
	assert.Equal(t, id, metas[0].ID)
	assert.Equal(t, "systrace", metas[0].Route)

	getResp, err := http.Get(srv.URL + "/traces/" + id)
	require.NoError(t, err)
	defer getResp.Body.Close()
	body, err := io.ReadAll(getResp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, "application/json", getResp.Header.Get("Content-Type"))
	assert.Equal(t, `{"traceEvents":[]}`, string(body))
}

func TestUploadRejectsEmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/traces/systrace", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownTrace(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/traces/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendResultThroughHTTPSender(t *testing.T) {
	srv, traces := newTestServer(t)

	rec := profilez.New()
	t.Cleanup(rec.Close)
	rec.Start(profilez.TagAll)
	rec.ImmediateEvent(1, profilez.TagUI, "vsync", time.Now(), profilez.ScopeGlobal)
	data, err := profilez.Encode(rec.Stop(), profilez.FormatMsgpack)
	require.NoError(t, err)

	sender := NewHTTPSender(srv.URL+"/", profilez.FormatMsgpack)
	require.NoError(t, profilez.SendResult(context.Background(), sender, "systrace", data))

	metas, err := traces.List(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "application/msgpack", metas[0].ContentType)

	stored, err := traces.Get(context.Background(), metas[0].ID)
	require.NoError(t, err)
	trace, err := profilez.Decode(stored.Data, profilez.FormatForContentType(stored.ContentType))
	require.NoError(t, err)
	assert.Len(t, trace.Named("vsync"), 1)
}

func TestHTTPSenderFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "receiver down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	err := NewHTTPSender(srv.URL, profilez.FormatJSON).SendBlob(context.Background(), "systrace", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "receiver down")
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func (brokenStore) Get(context.Context, string) (*store.Record, error) {
	return nil, errors.New("disk full")
}

func (brokenStore) List(context.Context) ([]store.Meta, error) {
	return nil, errors.New("disk full")
}

func TestServerReportsStoreFailures(t *testing.T) {
	srv := httptest.NewServer(NewServer(brokenStore{}, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/traces/x", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/traces")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
