package storage

import (
	"context"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/soundbridge/internal/infra/metrics"
)

type S3ResolverConfig struct {
	Bucket             string        `mapstructure:"bucket" validate:"required"`
	Region             string        `mapstructure:"region" default:"us-east-1"`
	Endpoint           string        `mapstructure:"endpoint" validate:"omitempty,url"` // S3-compatible services
	Prefix             string        `mapstructure:"prefix"`
	AccessKeyID        string        `mapstructure:"access_key_id"`
	SecretAccessKey    string        `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	UsePathStyle       bool          `mapstructure:"use_path_style"`
	URLExpiry          time.Duration `mapstructure:"url_expiry" default:"1h" validate:"gt=0"`
	RefreshMargin      time.Duration `mapstructure:"refresh_margin" default:"5m" validate:"gte=0"`
	SkipExistenceCheck bool          `mapstructure:"skip_existence_check"`
}

type cachedURL struct {
	url       string
	expiresAt time.Time
}

// S3Resolver resolves keys to presigned GET URLs. URLs are cached until
// shortly before they expire.
type S3Resolver struct {
	config  *S3ResolverConfig
	client  *s3.Client
	presign *s3.PresignClient
	metrics *metrics.Metrics

	urls   map[string]cachedURL
	urlsMu sync.RWMutex
	group  singleflight.Group
	now    func() time.Time
}

// NewS3Resolver creates a new S3Resolver.
func NewS3Resolver(ctx context.Context, settings map[string]any, m *metrics.Metrics) (*S3Resolver, error) {
	var config S3ResolverConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	if config.RefreshMargin >= config.URLExpiry {
		return nil, errors.Newf("refresh margin %s must be shorter than url expiry %s", config.RefreshMargin, config.URLExpiry)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})

	if m == nil {
		m = metrics.NewNop()
	}

	zlog.Debug().Msgf("s3 resolver: bucket=%s region=%s endpoint=%s prefix=%s", config.Bucket, config.Region, config.Endpoint, config.Prefix)
	return &S3Resolver{
		config:  &config,
		client:  client,
		presign: s3.NewPresignClient(client),
		metrics: m,
		urls:    make(map[string]cachedURL),
		now:     time.Now,
	}, nil
}

// Name returns the resolver type.
func (r *S3Resolver) Name() string {
	return "s3"
}

// ResolveURL returns a presigned URL for key. Direct keys are returned
// unchanged.
func (r *S3Resolver) ResolveURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		r.metrics.ResolveRequests.WithLabelValues(r.Name(), "error").Inc()
		return "", errors.New("empty storage key")
	}
	if IsDirect(key) {
		r.metrics.ResolveRequests.WithLabelValues(r.Name(), "direct").Inc()
		return key, nil
	}

	if u, ok := r.cached(key); ok {
		r.metrics.ResolveRequests.WithLabelValues(r.Name(), "hit").Inc()
		return u, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.sign(ctx, key)
	})
	if err != nil {
		r.metrics.ResolveRequests.WithLabelValues(r.Name(), "error").Inc()
		return "", err
	}
	r.metrics.ResolveRequests.WithLabelValues(r.Name(), "miss").Inc()
	return v.(string), nil
}

// Invalidate drops the cached URL for key.
func (r *S3Resolver) Invalidate(key string) {
	r.urlsMu.Lock()
	defer r.urlsMu.Unlock()
	delete(r.urls, key)
}

func (r *S3Resolver) cached(key string) (string, bool) {
	r.urlsMu.RLock()
	defer r.urlsMu.RUnlock()

	e, ok := r.urls[key]
	if !ok || !r.now().Before(e.expiresAt.Add(-r.config.RefreshMargin)) {
		return "", false
	}
	return e.url, true
}

func (r *S3Resolver) sign(ctx context.Context, key string) (string, error) {
	objectKey := r.objectKey(key)

	if !r.config.SkipExistenceCheck {
		_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(r.config.Bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			if isNotFound(err) {
				return "", errors.Wrapf(ErrObjectNotFound, "s3://%s/%s", r.config.Bucket, objectKey)
			}
			return "", errors.Wrapf(err, "failed to check s3://%s/%s", r.config.Bucket, objectKey)
		}
	}

	issued := r.now()
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.Bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(r.config.URLExpiry))
	if err != nil {
		return "", errors.Wrapf(err, "failed to presign s3://%s/%s", r.config.Bucket, objectKey)
	}

	r.urlsMu.Lock()
	r.urls[key] = cachedURL{url: req.URL, expiresAt: issued.Add(r.config.URLExpiry)}
	r.urlsMu.Unlock()

	zlog.Debug().Msgf("presigned s3://%s/%s for %s", r.config.Bucket, objectKey, r.config.URLExpiry)
	return req.URL, nil
}

func (r *S3Resolver) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if r.config.Prefix == "" {
		return key
	}
	return path.Join(r.config.Prefix, key)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
