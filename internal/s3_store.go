package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps rows in a CSV object, optionally gzipped. Each scan from
// offset 0 downloads the object again and appends rewrite it.
type S3Store struct {
	bucket string
	key    string
	client *s3.Client
	table  *csvTable

	// gzipped objects can be read but not appended to
	gzipped bool
}

func (s *S3Store) Name() string {
	return "s3"
}

func (s *S3Store) Init(urlStr string, opts StoreOptions) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	s.bucket = u.Host
	s.key = strings.TrimPrefix(u.Path, "/")
	if s.bucket == "" || s.key == "" || strings.HasSuffix(s.key, "/") {
		return fmt.Errorf("expected s3://bucket/key, got %q", urlStr)
	}
	return nil
}

func (s *S3Store) Authenticate(ctx context.Context) error {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}

	s.client = s3.NewFromConfig(cfg)
	return s.load(ctx)
}

func (s *S3Store) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	if offset == 0 || s.table == nil {
		if err := s.load(ctx); err != nil {
			return nil, err
		}
	}
	return window(s.table.rows, offset, limit), nil
}

func (s *S3Store) AppendRows(ctx context.Context, rows []Row) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	if s.gzipped {
		return errors.New("cannot append to a compressed object")
	}

	table := &csvTable{header: s.table.header, rows: append(s.table.rows, rows...)}

	var buf bytes.Buffer
	if err := table.encode(&buf); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return err
	}

	s.table = table
	return nil
}

func (s *S3Store) Close() error {
	return nil
}

// load downloads the object. A missing object reads as an empty table with
// the daily columns.
func (s *S3Store) load(ctx context.Context) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		s.table = newCSVTable()
		s.gzipped = false
		return nil
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader, gzipped, err := decompress(resp.Body)
	if err != nil {
		return err
	}
	table, err := decodeCSV(reader)
	if err != nil {
		return err
	}
	s.table = table
	s.gzipped = gzipped
	return nil
}
