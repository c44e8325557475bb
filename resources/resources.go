package resources

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	DefaultCorpusURL = "https://raw.githubusercontent.com/rbroc/" +
		"text-mining-course/master/data/blogtext.csv"
	DefaultCorpusName = "blogtext.csv"
)

// S3Client is the subset of the S3 API used to fetch corpora, so that it
// can be mocked.
type S3Client interface {
	GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	HeadObject(input *s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
}

// Fetcher retrieves corpus files from HTTP(S) servers, S3 or the local
// filesystem.
type Fetcher struct {
	Client *http.Client
	// Auth is sent as a bearer token on HTTP requests when set.
	Auth string
	S3   S3Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{Client: http.DefaultClient}
}

func isValidUrl(toTest string) bool {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return false
	}

	u, err := url.Parse(toTest)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return u.Scheme == "http" || u.Scheme == "https"
}

func isS3Uri(toTest string) bool {
	return strings.HasPrefix(toTest, "s3://")
}

// IsRemote reports whether uri has to be downloaded before use.
func IsRemote(uri string) bool {
	return isValidUrl(uri) || isS3Uri(uri)
}

// ParseS3Uri splits `s3://bucket/key` into its bucket and key.
func ParseS3Uri(uri string) (bucket string, key string, err error) {
	if !isS3Uri(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri must name a bucket and key: %s",
			uri)
	}
	return bucket, key, nil
}

func (fetcher *Fetcher) s3Client() (S3Client, error) {
	if fetcher.S3 == nil {
		sess, err := session.NewSessionWithOptions(session.Options{
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot create AWS session: %w", err)
		}
		fetcher.S3 = s3.New(sess)
	}
	return fetcher.S3, nil
}

func (fetcher *Fetcher) newRequest(method string, uri string) (*http.Request,
	error) {
	req, reqErr := http.NewRequest(method, uri, nil)
	if reqErr != nil {
		return nil, reqErr
	}
	if fetcher.Auth != "" {
		req.Header.Add("Authorization", "Bearer "+fetcher.Auth)
	}
	return req, nil
}

// FetchHTTP
// Fetch a resource from a remote HTTP server.
func (fetcher *Fetcher) FetchHTTP(uri string) (io.ReadCloser, error) {
	req, reqErr := fetcher.newRequest("GET", uri)
	if reqErr != nil {
		return nil, reqErr
	}
	resp, remoteErr := fetcher.Client.Do(req)
	if remoteErr != nil {
		return nil, remoteErr
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP status code %d fetching %s",
			resp.StatusCode, uri)
	}
	return resp.Body, nil
}

// SizeHTTP
// Get the size of a resource from a remote HTTP server. Servers that do not
// report a length yield 0.
func (fetcher *Fetcher) SizeHTTP(uri string) (uint64, error) {
	req, reqErr := fetcher.newRequest("HEAD", uri)
	if reqErr != nil {
		return 0, reqErr
	}
	resp, remoteErr := fetcher.Client.Do(req)
	if remoteErr != nil {
		return 0, remoteErr
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP status code %d sizing %s",
			resp.StatusCode, uri)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return uint64(resp.ContentLength), nil
}

func (fetcher *Fetcher) FetchS3(uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Uri(uri)
	if err != nil {
		return nil, err
	}
	client, err := fetcher.s3Client()
	if err != nil {
		return nil, err
	}
	output, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot get %s: %w", uri, err)
	}
	return output.Body, nil
}

func (fetcher *Fetcher) SizeS3(uri string) (uint64, error) {
	bucket, key, err := ParseS3Uri(uri)
	if err != nil {
		return 0, err
	}
	client, err := fetcher.s3Client()
	if err != nil {
		return 0, err
	}
	output, err := client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("cannot head %s: %w", uri, err)
	}
	return uint64(aws.Int64Value(output.ContentLength)), nil
}

// Fetch
// Given a uri, determines if the resource is local, on S3 or on an HTTP
// server, and returns a ReadCloser over its contents.
func (fetcher *Fetcher) Fetch(uri string) (io.ReadCloser, error) {
	if isValidUrl(uri) {
		return fetcher.FetchHTTP(uri)
	} else if isS3Uri(uri) {
		return fetcher.FetchS3(uri)
	} else if handle, err := os.Open(uri); err != nil {
		return nil, fmt.Errorf("error opening %s: %w", uri, err)
	} else {
		return handle, nil
	}
}

// Size
// Given a uri, determine the size of the resource.
func (fetcher *Fetcher) Size(uri string) (uint64, error) {
	if isValidUrl(uri) {
		return fetcher.SizeHTTP(uri)
	} else if isS3Uri(uri) {
		return fetcher.SizeS3(uri)
	} else if stat, err := os.Stat(uri); err != nil {
		return 0, err
	} else if stat.IsDir() {
		return 0, errors.New(fmt.Sprintf("%s is a directory", uri))
	} else {
		return uint64(stat.Size()), nil
	}
}
