package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	BucketAvatars     = "avatars"
	BucketGroupImages = "group-images"
	BucketPostImages  = "post-images"
	BucketChatImages  = "chat-images"
)

var (
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrBadExtension  = errors.New("unsupported file type")
)

var buckets = map[string]struct{}{
	BucketAvatars:     {},
	BucketGroupImages: {},
	BucketPostImages:  {},
	BucketChatImages:  {},
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func ValidBucket(bucket string) bool {
	_, ok := buckets[bucket]
	return ok
}

// ContentType 按扩展名返回图片类型，只接受图片
func ContentType(filename string) (string, error) {
	ct, ok := imageTypes[strings.ToLower(path.Ext(filename))]
	if !ok {
		return "", ErrBadExtension
	}
	return ct, nil
}

// NewKey 生成 <owner>/<uuid><ext>
func NewKey(ownerID uint64, filename string) string {
	return fmt.Sprintf("%d/%s%s", ownerID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Region        string
	Endpoint      string
	PublicBaseURL string
	UsePathStyle  bool
}

// Store 对象存储，每个 bucket 对应一类图片
type Store struct {
	client putter
	cfg    Config
}

func NewS3Store(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Store{client: client, cfg: cfg}, nil
}

// Upload 写入对象，返回 bucket 内路径
func (s *Store) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	if !ValidBucket(bucket) {
		return "", fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

// PublicURL 优先使用配置的公共地址，其次自定义 endpoint，最后是 aws 默认域名
func (s *Store) PublicURL(bucket, p string) string {
	p = strings.TrimPrefix(p, "/")
	switch {
	case s.cfg.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), bucket, p)
	case s.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), bucket, p)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, p)
	}
}
