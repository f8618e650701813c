package ps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/nickyhof/TupleDB/core"
)

var ErrRemoteNotFound = errors.New("remote object not found")

// RemoteConfig holds S3 settings. Empty fields fall back to the AWS default
// credential chain.
type RemoteConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // custom S3-compatible endpoint
}

type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // no scheme, local path
)

func detectScheme(path string) urlScheme {
	lowerPath := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lowerPath, "s3://"):
		return schemeS3
	case strings.HasPrefix(lowerPath, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lowerPath, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lowerPath, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// JoinRemote appends name to a local path or URL prefix.
func JoinRemote(base, name string) string {
	if base == "" {
		return name
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

// OpenReader opens a local path, file://, http(s):// or s3:// URL for reading.
// Missing objects are reported as ErrRemoteNotFound.
func OpenReader(ctx context.Context, path string, cfg *RemoteConfig) (io.ReadCloser, error) {
	switch detectScheme(path) {
	case schemeLocal, schemeFile:
		file, err := osOpen(strings.TrimPrefix(path, "file://"))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return file, err

	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(ctx, path)

	case schemeS3:
		return openS3Reader(ctx, path, cfg)

	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

// OpenWriter opens a local path, file:// or s3:// URL for writing. The object
// is complete once Close returns without error.
func OpenWriter(ctx context.Context, path string, cfg *RemoteConfig) (io.WriteCloser, error) {
	switch detectScheme(path) {
	case schemeLocal, schemeFile:
		return osCreate(strings.TrimPrefix(path, "file://"))

	case schemeHTTP, schemeHTTPS:
		return nil, fmt.Errorf("HTTP/HTTPS does not support writing")

	case schemeS3:
		return openS3Writer(ctx, path, cfg)

	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

func readRemote(ctx context.Context, path string, cfg *RemoteConfig) ([]byte, error) {
	reader, err := OpenReader(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// ImportRemote copies the schema file and every declared table's CSV file from
// base into the repository as one transaction. Every row is checked against
// its table schema before anything is committed.
func (p *Persistence) ImportRemote(ctx context.Context, base string, cfg *RemoteConfig, identity core.Identity) (Transaction, []TableDef, error) {
	schema, err := readRemote(ctx, JoinRemote(base, p.schemaFile), cfg)
	if err != nil {
		return Transaction{}, nil, fmt.Errorf("failed to read schema: %w", err)
	}

	defs, err := ParseSchemaFile(schema)
	if err != nil {
		return Transaction{}, nil, err
	}

	batch, err := p.BeginTransaction()
	if err != nil {
		return Transaction{}, nil, err
	}
	if err := batch.AddWrite(p.schemaFile, schema); err != nil {
		return Transaction{}, nil, err
	}

	for _, def := range defs {
		data, err := readRemote(ctx, JoinRemote(base, DataFile(def.Name)), cfg)
		if errors.Is(err, ErrRemoteNotFound) {
			// no data file means an empty table; drop any rows left from before
			if err := batch.AddDelete(DataFile(def.Name)); err != nil {
				return Transaction{}, nil, err
			}
			continue
		}
		if err != nil {
			return Transaction{}, nil, fmt.Errorf("failed to read %s: %w", DataFile(def.Name), err)
		}

		if err := validateRows(def, data); err != nil {
			return Transaction{}, nil, err
		}
		if err := batch.AddWrite(DataFile(def.Name), data); err != nil {
			return Transaction{}, nil, err
		}
	}

	txn, err := batch.Commit(identity, fmt.Sprintf("Import %d table(s) from %s", len(defs), base))
	if err != nil {
		return Transaction{}, nil, err
	}

	p.logger.Info("imported remote", "source", base, "tables", len(defs), "transaction", txn.Id)
	return txn, defs, nil
}

func validateRows(def TableDef, data []byte) error {
	rows, err := DecodeRows(data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", DataFile(def.Name), err)
	}
	for i, row := range rows {
		if err := core.NewTuple(def.Schema).SetValues(row); err != nil {
			return fmt.Errorf("%s row %d: %w", DataFile(def.Name), i+1, err)
		}
	}
	return nil
}

// openHTTPReader opens an HTTP GET reader
func openHTTPReader(ctx context.Context, url string) (io.ReadCloser, error) {
	client := &http.Client{
		Timeout: 5 * time.Minute,
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, url)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}
}

// parseS3URL parses s3://bucket/key into bucket and key parts
func parseS3URL(url string) (bucket, key string, err error) {
	path := url[len("s3://"):]
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return parts[0], parts[1], nil
}

func getS3Client(ctx context.Context, cfg *RemoteConfig) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func openS3Reader(ctx context.Context, url string, cfg *RemoteConfig) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, url)
		}
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return resp.Body, nil
}

// s3Writer buffers the object and uploads it on Close
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buffer bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.buffer.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

func openS3Writer(ctx context.Context, url string, cfg *RemoteConfig) (io.WriteCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &s3Writer{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
	}, nil
}

// osOpen wraps os.Open so tests can swap it
var osOpen = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// osCreate wraps os.Create so tests can swap it
var osCreate = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
