package storage

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

const defaultExpiry = 24 * time.Hour

// Config for the MinIO artifact bucket.
type Config struct {
	Endpoint  string        `yaml:"endpoint"`
	Region    string        `yaml:"region"`
	Bucket    string        `yaml:"bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// Store menyimpan file export di MinIO dan mengembalikan presigned URL.
type Store struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// New buat koneksi MinIO
func New(ctx context.Context, cfg Config) (*Store, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "minio: new client")
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, eris.Wrapf(err, "minio: check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, eris.Wrapf(err, "minio: make bucket %s", cfg.Bucket)
		}
		zap.L().Info("minio bucket created", zap.String("bucket", cfg.Bucket))
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Store{client: cli, bucket: cfg.Bucket, expiry: expiry}, nil
}

// Put implementasi ArtifactStore
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", eris.Wrapf(err, "minio: put %s", key)
	}

	// bucket private, jadi selalu pakai presigned URL
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", eris.Wrapf(err, "minio: presign %s", key)
	}
	return u.String(), nil
}

var _ analysis.ArtifactStore = (*Store)(nil)
