package s3archive

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/model"
)

func TestFlushUploadsBufferedRowsAsNdjson(t *testing.T) {
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			uploaded, _ = io.ReadAll(r.Body)
			rw.Header().Set("ETag", `"abc"`)
			rw.WriteHeader(http.StatusOK)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := Open(context.Background(), Config{
		Endpoint: srv.URL, Bucket: "archive", Region: "us-east-1",
		AccessKey: "k", SecretKey: "s", UsePathStyle: true,
	})
	require.NoError(t, err)

	ds := model.DataSet{TypeName: "load", Sources: []model.DataSource{{Name: "shortterm", Type: model.Gauge}}}
	vl := model.ValueList{
		Identifier: model.Identifier{Host: "h", Plugin: "cpu", Type: "load"},
		Time:       cdtime.FromSeconds(100),
		Values:     []model.Value{model.NewGauge(2.0)},
	}
	require.NoError(t, a.Write(ds, vl))
	require.NoError(t, a.Write(ds, vl))

	require.NoError(t, a.Flush(cdtime.FromSeconds(0), ""))

	scanner := bufio.NewScanner(bytes.NewReader(uploaded))
	lines := 0
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			lines++
		}
	}
	assert.Equal(t, 2, lines)

	a.mu.Lock()
	assert.Empty(t, a.buf)
	a.mu.Unlock()
}

func TestFlushWithEmptyBufferIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		called = true
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := Open(context.Background(), Config{
		Endpoint: srv.URL, Bucket: "archive", Region: "us-east-1", UsePathStyle: true,
	})
	require.NoError(t, err)

	require.NoError(t, a.Flush(cdtime.FromSeconds(0), ""))
	assert.False(t, called)
}

func TestOpenRejectsEmptyBucket(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}
