package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers just enough of the S3 API for bucket checks and PutObject.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, object, _ := strings.Cut(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Query().Has("location"):
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
	case r.Method == http.MethodHead && object == "":
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case r.Method == http.MethodPut && object == "":
		f.buckets[bucket] = true
	case r.Method == http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(b)
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestPutUploadsAndPresigns(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	s, err := New(context.Background(), Config{
		Endpoint: u.Host, Region: "us-east-1", Bucket: "exports",
		AccessKey: "ak", SecretKey: "sk", URLExpiry: time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, fake.buckets["exports"])

	link, err := s.Put(context.Background(), "exports/u1/x/analysis.csv", "text/csv", []byte("a,b\n"))
	require.NoError(t, err)
	// over plain http the body may arrive aws-chunked, so only look for the payload
	assert.Contains(t, fake.objects["/exports/exports/u1/x/analysis.csv"], "a,b")
	assert.Equal(t, "text/csv", fake.types["/exports/exports/u1/x/analysis.csv"])

	p, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/exports/exports/u1/x/analysis.csv", p.Path)
	assert.Equal(t, "3600", p.Query().Get("X-Amz-Expires"))
}
