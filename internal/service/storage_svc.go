package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"boards_catalog_v1/pkg/utils"
)

// ==================== 接口定义 ====================

// StorageProvider 对象存储提供者
type StorageProvider interface {
	// Upload 按 key 上传，返回公开访问 URL
	Upload(ctx context.Context, data []byte, key string, contentType string) (url string, err error)

	// Delete 按公开 URL 删除对象
	Delete(ctx context.Context, url string) error
}

// ==================== 配置 ====================

const (
	ProviderS3       = "s3"
	ProviderMinIO    = "minio"
	ProviderSupabase = "supabase"
	ProviderLocal    = "local"

	// DefaultMaxImageMB 单张图片默认上限
	DefaultMaxImageMB = 10
)

type StorageConfig struct {
	Provider      string // s3 | minio | supabase | local
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string // supabase 时为 service key
	Endpoint      string // 自定义端点：S3 兼容服务 / MinIO 地址 / Supabase 项目 URL
	UsePathStyle  bool
	UseSSL        bool
	CDNDomain     string // CDN域名 (可选)
	BasePath      string // 本地存储目录
	PublicBaseURL string // 本地存储对外 URL 前缀
	MaxImageMB    int64
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg *StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case ProviderS3:
		return NewS3Storage(cfg)
	case ProviderMinIO:
		return NewMinIOStorage(cfg)
	case ProviderSupabase:
		return NewSupabaseStorage(cfg)
	case ProviderLocal:
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== 图片上传服务 ====================

// ImageFile 待上传的图片
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadError 图片被拒绝或上传失败，Error() 即返回给用户的提示
type UploadError struct {
	Filename string
	Message  string
	Err      error
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

var (
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// StorageService 图片校验与上传
type StorageService struct {
	provider StorageProvider
	maxBytes int64
	now      func() time.Time
}

// NewStorageService 按配置创建存储服务
func NewStorageService(cfg StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(&cfg)
	if err != nil {
		return nil, err
	}
	return NewStorageServiceWithProvider(provider, cfg.MaxImageMB), nil
}

// NewStorageServiceWithProvider 使用已有的 provider
func NewStorageServiceWithProvider(provider StorageProvider, maxImageMB int64) *StorageService {
	if maxImageMB <= 0 {
		maxImageMB = DefaultMaxImageMB
	}
	return &StorageService{
		provider: provider,
		maxBytes: maxImageMB << 20,
		now:      time.Now,
	}
}

// GetProvider 获取底层 Provider
func (s *StorageService) GetProvider() StorageProvider {
	return s.provider
}

// DetectImageType 返回图片的 MIME 类型
// 声明类型为空或 octet-stream 时按内容识别
func DetectImageType(f ImageFile) string {
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "" || declared == "application/octet-stream" {
		return mimetype.Detect(f.Data).String()
	}
	return declared
}

// ValidateImage 校验类型与大小
func (s *StorageService) ValidateImage(f ImageFile) error {
	if !strings.HasPrefix(DetectImageType(f), "image/") {
		return &UploadError{
			Filename: f.Filename,
			Message:  fmt.Sprintf("File %q is not an image.", f.Filename),
			Err:      ErrNotAnImage,
		}
	}
	if int64(len(f.Data)) > s.maxBytes {
		return &UploadError{
			Filename: f.Filename,
			Message:  fmt.Sprintf("File %q exceeds the maximum size of %d MB.", f.Filename, s.maxBytes>>20),
			Err:      ErrImageTooLarge,
		}
	}
	return nil
}

// UploadImages 逐个上传，返回的 URL 与提交顺序一致
// 调用前应先对全部文件执行 ValidateImage；中途失败时返回已上传的 URL 供调用方清理
func (s *StorageService) UploadImages(ctx context.Context, files []ImageFile) ([]string, error) {
	urls := make([]string, 0, len(files))
	var last int64
	for _, f := range files {
		millis := s.now().UnixMilli()
		// 同一毫秒内的多个文件顺延，保证 key 不重复
		if millis <= last {
			millis = last + 1
		}
		last = millis

		key := ObjectName(millis, f.Filename)
		url, err := s.provider.Upload(ctx, f.Data, key, DetectImageType(f))
		if err != nil {
			return urls, &UploadError{
				Filename: f.Filename,
				Message:  fmt.Sprintf("Failed to upload image %q.", f.Filename),
				Err:      err,
			}
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// DeleteAll 尽力删除，返回合并后的错误
func (s *StorageService) DeleteAll(ctx context.Context, urls []string) error {
	var errs []error
	for _, u := range urls {
		if err := s.provider.Delete(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("删除 %s 失败: %w", u, err))
		}
	}
	return errors.Join(errs...)
}

// ObjectName 对象名：<毫秒时间戳>-<原文件名>
func ObjectName(millis int64, filename string) string {
	return fmt.Sprintf("%d-%s", millis, sanitizeFilename(filename))
}

// sanitizeFilename 只保留 URL 安全字符
func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		return "image"
	}
	return name
}

// keyFromURL 去掉公开 URL 前缀得到 key
func keyFromURL(base, url string) string {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewS3Storage(cfg *StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Storage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: s3PublicBase(cfg),
	}, nil
}

func s3PublicBase(cfg *StorageConfig) string {
	switch {
	case cfg.CDNDomain != "":
		return "https://" + cfg.CDNDomain
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传S3失败: %w", err)
	}
	return s.publicBase + "/" + key, nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := keyFromURL(s.publicBase, url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径: %s", url)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// ==================== MinIO 实现 ====================

type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

func NewMinIOStorage(cfg *StorageConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查 bucket 失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("创建 bucket 失败: %w", err)
		}
	}

	publicBase := client.EndpointURL().String() + "/" + cfg.Bucket
	if cfg.CDNDomain != "" {
		publicBase = "https://" + cfg.CDNDomain
	}
	return &MinIOStorage{client: client, bucket: cfg.Bucket, publicBase: publicBase}, nil
}

func (s *MinIOStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传MinIO失败: %w", err)
	}
	return s.publicBase + "/" + key, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, url string) error {
	key := keyFromURL(s.publicBase, url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径: %s", url)
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// ==================== Supabase Storage 实现 ====================

// SupabaseStorage 通过 Storage REST 接口上传
type SupabaseStorage struct {
	client     *resty.Client
	bucket     string
	publicBase string
}

func NewSupabaseStorage(cfg *StorageConfig) (*SupabaseStorage, error) {
	if cfg.Endpoint == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("supabase 存储需要 endpoint 和 key")
	}
	base := strings.TrimRight(cfg.Endpoint, "/")
	client := utils.NewHTTPClient(base+"/storage/v1", 0).
		SetAuthToken(cfg.SecretKey).
		SetHeader("apikey", cfg.SecretKey)

	publicBase := fmt.Sprintf("%s/storage/v1/object/public/%s", base, cfg.Bucket)
	if cfg.CDNDomain != "" {
		publicBase = "https://" + cfg.CDNDomain
	}
	return &SupabaseStorage{client: client, bucket: cfg.Bucket, publicBase: publicBase}, nil
}

func (s *SupabaseStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(data).
		Post(fmt.Sprintf("/object/%s/%s", s.bucket, key))
	if err != nil {
		return "", fmt.Errorf("上传Supabase失败: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("上传Supabase失败: HTTP %d %s", resp.StatusCode(), resp.String())
	}
	return s.publicBase + "/" + key, nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, url string) error {
	key := keyFromURL(s.publicBase, url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径: %s", url)
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string][]string{"prefixes": {key}}).
		Delete("/object/" + s.bucket)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("删除Supabase对象失败: HTTP %d", resp.StatusCode())
	}
	return nil
}

// ==================== 本地存储 (开发测试用) ====================

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg *StorageConfig) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.basePath, filepath.Base(key)), data, 0o644); err != nil {
		return "", fmt.Errorf("写入本地文件失败: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	key := keyFromURL(s.baseURL, url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径: %s", url)
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.Base(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// BasePath 本地存储目录，路由挂载静态文件时使用
func (s *LocalStorage) BasePath() string {
	return s.basePath
}
