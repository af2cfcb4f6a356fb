package s3kv

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

// readChunked decodes an aws-chunked payload, trailers are ignored.
func readChunked(body []byte) ([]byte, error) {
	reader := bufio.NewReader(bytes.NewReader(body))
	var out []byte
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		header := strings.TrimSpace(line)
		if i := strings.IndexByte(header, ';'); i >= 0 {
			header = header[:i]
		}
		size, err := strconv.ParseInt(header, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out, nil
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(reader, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		// chunk terminator
		if _, err := reader.ReadString('\n'); err != nil {
			return nil, err
		}
	}
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/xml"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// path style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] != "feedwarden" {
		return response(http.StatusNotFound, "<Error><Code>NoSuchBucket</Code></Error>"), nil
	}
	key := parts[1]

	switch req.Method {
	case http.MethodGet:
		body, ok := b.objects[key]
		if !ok {
			return response(http.StatusNotFound, "<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>"), nil
		}
		res := response(http.StatusOK, string(body))
		res.Header.Set("Content-Type", "application/json")
		res.Header.Set("Content-Length", strconv.Itoa(len(body)))
		return res, nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body, err = readChunked(body)
			if err != nil {
				return nil, err
			}
		}
		b.objects[key] = body
		b.puts++
		res := response(http.StatusOK, "")
		res.Header.Set("ETag", `"etag"`)
		return res, nil
	}
	return response(http.StatusNotImplemented, ""), nil
}

func newTestStore(t *testing.T, prefix string) (*Store, *fakeBucket) {
	bucket := &fakeBucket{objects: make(map[string][]byte)}
	store, err := New(context.Background(), Config{
		Bucket:          "feedwarden",
		Endpoint:        "https://s3.test.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		Prefix:          prefix,
		HTTPClient:      &http.Client{Transport: bucket},
	})
	require.NoError(t, err)
	return store, bucket
}

func TestReadMissing(t *testing.T) {
	store, _ := newTestStore(t, "")

	value, ok, err := store.Read("feedwarden.counts")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestWriteThenRead(t *testing.T) {
	store, bucket := newTestStore(t, "users/ada/")

	require.NoError(t, store.Write("feedwarden.counts", `{"counts":{"a":1}}`))
	require.NoError(t, store.Write("feedwarden.counts", `{"counts":{"a":2}}`))
	require.Equal(t, 2, bucket.puts)
	require.Contains(t, bucket.objects, "users/ada/feedwarden.counts")

	value, ok, err := store.Read("feedwarden.counts")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"counts":{"a":2}}`, value)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "bucket")
}
