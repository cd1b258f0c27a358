package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	sc "github.com/dmitrijs2005/taskpilot/internal/server/config"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for the AWS SDK so presign flows can be exercised without a
// bucket.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// AttachmentService stores attachment metadata and hands out presigned
// URLs; file bytes go straight between the client and the bucket.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewAttachmentService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *AttachmentService {
	return &AttachmentService{db: db, repomanager: m, config: cfg}
}

// AttachmentUpload pairs the stored metadata with a one-time upload URL.
type AttachmentUpload struct {
	Attachment *models.Attachment `json:"attachment"`
	UploadURL  string             `json:"uploadUrl"`
}

// AttachmentDownload pairs stored metadata with a download URL.
type AttachmentDownload struct {
	Attachment  *models.Attachment `json:"attachment"`
	DownloadURL string             `json:"downloadUrl"`
}

// GetRandomStorageKey produces a date-partitioned object key for a new
// attachment.
func GetRandomStorageKey(taskID string) string {
	d := time.Now()
	return fmt.Sprintf("tasks/%s/%d/%d/%d/%v", taskID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// CreateAttachment registers an attachment on a task and returns a
// presigned PUT URL valid for 15 minutes.
func (s *AttachmentService) CreateAttachment(ctx context.Context, taskID string, fileName string) (*AttachmentUpload, error) {
	if !validID(taskID) {
		return nil, fmt.Errorf("%w: invalid task id", common.ErrValidation)
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if _, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: task not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading task: %w", err)
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, fmt.Errorf("error creating presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey(taskID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	attachment := &models.Attachment{
		TaskID:     taskID,
		FileName:   strings.TrimSpace(fileName),
		StorageKey: key,
	}
	attachment, err = s.repomanager.Attachments(s.db).Create(ctx, attachment)
	if err != nil {
		return nil, fmt.Errorf("error creating attachment: %w", err)
	}

	return &AttachmentUpload{Attachment: attachment, UploadURL: req.URL}, nil
}

// ListAttachments returns a task's attachments, each with a presigned GET
// URL valid for 15 minutes.
func (s *AttachmentService) ListAttachments(ctx context.Context, taskID string) ([]*AttachmentDownload, error) {
	if !validID(taskID) {
		return nil, fmt.Errorf("%w: invalid task id", common.ErrValidation)
	}
	if _, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: task not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading task: %w", err)
	}

	items, err := s.repomanager.Attachments(s.db).ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("error listing attachments: %w", err)
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, fmt.Errorf("error creating presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	result := make([]*AttachmentDownload, 0, len(items))
	for _, item := range items {
		req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &item.StorageKey,
		}, s3.WithPresignExpires(15*time.Minute))
		if err != nil {
			return nil, fmt.Errorf("error presigning download: %w", err)
		}
		result = append(result, &AttachmentDownload{Attachment: item, DownloadURL: req.URL})
	}
	return result, nil
}
