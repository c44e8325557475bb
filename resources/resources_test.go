package resources

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvBody = "id,post\n1,hello world\n2,\"two\nlines\"\n"

// S3MockClient is a mock implementation of S3Client.
type S3MockClient struct {
	Objects map[string]string
	Err     error
	Gets    int
}

func (m *S3MockClient) GetObject(input *s3.GetObjectInput) (
	*s3.GetObjectOutput,
	error,
) {
	if m.Err != nil {
		return nil, m.Err
	}
	body, ok := m.Objects[*input.Bucket+"/"+*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	m.Gets++
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func (m *S3MockClient) HeadObject(input *s3.HeadObjectInput) (
	*s3.HeadObjectOutput,
	error,
) {
	if m.Err != nil {
		return nil, m.Err
	}
	body, ok := m.Objects[*input.Bucket+"/"+*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func corpusServer(t *testing.T, hits *int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(hits, 1)
			if r.URL.Path != "/data/blogtext.csv" {
				http.NotFound(w, r)
				return
			}
			http.ServeContent(w, r, "blogtext.csv", time.Time{},
				strings.NewReader(csvBody))
		}))
	t.Cleanup(server.Close)
	return server
}

func TestResolveCorpusDownloadsOnce(t *testing.T) {
	var hits int32
	server := corpusServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "data", "blog")
	fetcher := &Fetcher{Client: server.Client()}

	paths, err := fetcher.ResolveCorpus(server.URL+"/data/blogtext.csv",
		dir, DefaultCorpusName)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, DefaultCorpusName)}, paths)
	contents, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(contents))
	_, err = os.Stat(paths[0] + ".part")
	assert.True(t, os.IsNotExist(err))

	requests := atomic.LoadInt32(&hits)
	paths, err = fetcher.ResolveCorpus(server.URL+"/data/blogtext.csv",
		dir, DefaultCorpusName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultCorpusName), paths[0])
	assert.Equal(t, requests, atomic.LoadInt32(&hits),
		"existing corpus must not be re-downloaded")
}

func TestResolveCorpusHTTPError(t *testing.T) {
	var hits int32
	server := corpusServer(t, &hits)
	dir := t.TempDir()
	fetcher := &Fetcher{Client: server.Client()}

	_, err := fetcher.ResolveCorpus(server.URL+"/missing.csv", dir,
		DefaultCorpusName)
	assert.Error(t, err)
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestFetchHTTPAuth(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			io.WriteString(w, "ok")
		}))
	defer server.Close()
	fetcher := &Fetcher{Client: server.Client(), Auth: "sekrit"}
	body, err := fetcher.Fetch(server.URL + "/x")
	require.NoError(t, err)
	defer body.Close()
	contents, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(contents))
	assert.Equal(t, "Bearer sekrit", auth)
}

func TestResolveCorpusS3(t *testing.T) {
	mock := &S3MockClient{
		Objects: map[string]string{"corpora/blog/blogtext.csv": csvBody},
	}
	fetcher := &Fetcher{S3: mock}
	dir := t.TempDir()

	paths, err := fetcher.ResolveCorpus("s3://corpora/blog/blogtext.csv",
		dir, "blog.csv")
	require.NoError(t, err)
	contents, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(contents))
	assert.Equal(t, 1, mock.Gets)

	mock.Err = errors.New("simulated error")
	_, err = fetcher.ResolveCorpus("s3://corpora/blog/other.csv", dir,
		"other.csv")
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "other.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseS3Uri(t *testing.T) {
	bucket, key, err := ParseS3Uri("s3://bucket/a/b/c.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b/c.csv", key)

	for _, bad := range []string{"s3://bucket", "s3:///key", "http://x/y"} {
		_, _, err := ParseS3Uri(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveCorpusLocal(t *testing.T) {
	dir := t.TempDir()
	shardDir := filepath.Join(dir, "shards", "2004")
	require.NoError(t, os.MkdirAll(shardDir, 0755))
	for _, name := range []string{"b.csv", "a.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(shardDir, name),
			[]byte(csvBody), 0644))
	}
	fetcher := NewFetcher()

	paths, err := fetcher.ResolveCorpus(filepath.Join(dir, "shards"), "",
		DefaultCorpusName)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(shardDir, "a.csv"),
		filepath.Join(shardDir, "b.csv"),
	}, paths)

	single := filepath.Join(shardDir, "a.csv")
	paths, err = fetcher.ResolveCorpus(single, "", DefaultCorpusName)
	require.NoError(t, err)
	assert.Equal(t, []string{single}, paths)

	_, err = fetcher.ResolveCorpus(filepath.Join(dir, "nope.csv"), "",
		DefaultCorpusName)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(empty, 0755))
	_, err = fetcher.ResolveCorpus(empty, "", DefaultCorpusName)
	assert.Error(t, err)
}

func TestWriteCounter(t *testing.T) {
	counter := &WriteCounter{Last: time.Now(), Path: "x", Size: 10}
	n, err := counter.Write([]byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(5), counter.Total)

	stale := time.Now().Add(-time.Minute)
	counter.Last = stale
	_, _ = counter.Write([]byte("678"))
	assert.True(t, counter.Last.After(stale))
	assert.Equal(t, uint64(8), counter.Total)

	reported := counter.Last
	_, _ = counter.Write([]byte("9"))
	assert.Equal(t, reported, counter.Last)
	assert.Equal(t, uint64(9), counter.Total)
}
