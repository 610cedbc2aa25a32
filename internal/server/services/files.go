package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/dbx"
	sc "github.com/penlight/penlight/internal/server/config"
	"github.com/penlight/penlight/internal/server/models"
	"github.com/penlight/penlight/internal/server/repositories/repomanager"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

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
	deleteS3Object = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

// AvatarService manages user avatars: files live on S3-compatible object
// storage, their metadata in public_files, and the owning user points at
// the current one through avatar_id.
type AvatarService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewAvatarService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *AvatarService {
	return &AvatarService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AvatarService) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	}), nil
}

func (s *AvatarService) getPresignClient() (*s3.PresignClient, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}
	return newS3PresignClient(client), nil
}

// CreateUploadURL returns a storage key and a presigned PUT URL the client
// uploads the avatar bytes to. The key is not linked to the user until
// SetAvatar is called with it.
func (s *AvatarService) CreateUploadURL(ctx context.Context) (string, string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))

	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// SetAvatar records an uploaded object as the user's avatar. The file row
// and the user's avatar_id change in one transaction; a previous avatar's
// row is removed in the same transaction and its object deleted afterwards.
func (s *AvatarService) SetAvatar(ctx context.Context, user *models.User, key string) (*models.PublicFile, error) {

	file := &models.PublicFile{
		StorageKey: key,
		URL:        s.publicURL(key),
	}

	var oldFile *models.PublicFile
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fileRepo := s.repomanager.Files(tx)
		userRepo := s.repomanager.Users(tx)

		if user.AvatarID != nil {
			old, err := fileRepo.GetByID(ctx, *user.AvatarID)
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			oldFile = old
		}

		created, err := fileRepo.Create(ctx, file)
		if err != nil {
			return err
		}

		if err := userRepo.UpdateAvatarID(ctx, user.ID, &created.ID); err != nil {
			return err
		}

		if oldFile != nil {
			if err := fileRepo.Delete(ctx, oldFile.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error setting avatar: %v", err)
	}

	if oldFile != nil {
		// Best effort; the database no longer references the object.
		_ = s.deleteObject(ctx, oldFile.StorageKey)
	}

	return file, nil
}

// AvatarURL returns a presigned GET URL for the user's current avatar, or
// ErrorNotFound if the user has none.
func (s *AvatarService) AvatarURL(ctx context.Context, user *models.User) (string, error) {
	if user.AvatarID == nil {
		return "", common.ErrorNotFound
	}

	fileRepo := s.repomanager.Files(s.db)
	f, err := fileRepo.GetByID(ctx, *user.AvatarID)
	if err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &f.StorageKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// DeleteAvatar unlinks and removes the user's current avatar. Clearing the
// user's avatar_id and deleting the file row happen in one transaction;
// deleting the stored object follows. A user without an avatar yields
// ErrorNotFound.
func (s *AvatarService) DeleteAvatar(ctx context.Context, user *models.User) error {
	if user.AvatarID == nil {
		return common.ErrorNotFound
	}

	var storageKey string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fileRepo := s.repomanager.Files(tx)
		userRepo := s.repomanager.Users(tx)

		f, err := fileRepo.GetByID(ctx, *user.AvatarID)
		if err != nil {
			return err
		}
		storageKey = f.StorageKey

		if err := userRepo.UpdateAvatarID(ctx, user.ID, nil); err != nil {
			return err
		}
		return fileRepo.Delete(ctx, f.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting avatar: %v", err)
	}

	return s.deleteObject(ctx, storageKey)
}

func (s *AvatarService) deleteObject(ctx context.Context, key string) error {
	client, err := s.getClient()
	if err != nil {
		return err
	}
	bucket := s.config.S3Bucket
	_, err = deleteS3Object(client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	return err
}

func (s *AvatarService) publicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(s.config.S3BaseEndpoint, "/"), s.config.S3Bucket, key)
}
