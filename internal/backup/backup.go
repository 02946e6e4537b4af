// Package backup копирует библиотеку отрезков и настройки в Amazon S3 и обратно
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"gopkg.in/yaml.v3"

	"github.com/hazadus/go-abloop/internal/settings"
	"github.com/hazadus/go-abloop/internal/storage"
)

// Имена объектов в бакете
const (
	SegmentsObject = "segments.yaml"
	SettingsObject = "settings.yaml"
)

// ErrNotFound возвращается, если копии нет в бакете
var ErrNotFound = errors.New("резервная копия не найдена")

// Config содержит настройки для S3
type Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	BucketName string
	Prefix     string
}

// UploaderAPI - часть s3manager.Uploader, которой пользуется клиент
type UploaderAPI interface {
	UploadWithContext(ctx context.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// ObjectAPI - часть клиента S3 для чтения объектов
type ObjectAPI interface {
	GetObjectWithContext(ctx context.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// Client выполняет резервное копирование
type Client struct {
	uploader UploaderAPI
	objects  ObjectAPI
	config   *Config
}

// NewClient создает клиента с AWS сессией
func NewClient(config *Config) (*Client, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
	}

	// Если указан endpoint, добавляем его
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := awssession.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AWS сессии: %w", err)
	}

	return NewClientWithAPI(config, s3manager.NewUploader(sess), s3.New(sess)), nil
}

// NewClientWithAPI создает клиента поверх готовых реализаций API
func NewClientWithAPI(config *Config, uploader UploaderAPI, objects ObjectAPI) *Client {
	return &Client{
		uploader: uploader,
		objects:  objects,
		config:   config,
	}
}

// ObjectKey возвращает ключ объекта с учетом префикса
func (c *Client) ObjectKey(name string) string {
	prefix := strings.Trim(c.config.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PushFile загружает локальный файл под именем name.
// Если progress не nil, в него пишутся переданные байты.
func (c *Client) PushFile(ctx context.Context, localPath, name string, progress io.Writer) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	var body io.Reader = file
	if progress != nil {
		body = io.TeeReader(file, progress)
	}

	key := c.ObjectKey(name)
	_, err = c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.config.BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/yaml"),
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки: %w", err)
	}

	return key, nil
}

// Fetch скачивает объект name целиком
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	out, err := c.objects.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(c.ObjectKey(name)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("ошибка скачивания: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	return data, nil
}

// PullSegments объединяет удаленную библиотеку с локальной.
// Ключи, которых нет локально, добавляются; существующие заменяются только при overwrite.
func (c *Client) PullSegments(ctx context.Context, store *storage.SegmentStore, overwrite bool) (int, error) {
	data, err := c.Fetch(ctx, SegmentsObject)
	if err != nil {
		return 0, err
	}

	remote := storage.NewLibrary()
	if err := yaml.Unmarshal(data, remote); err != nil {
		return 0, fmt.Errorf("%w: удаленная библиотека: %v", storage.ErrCorrupt, err)
	}

	local, err := store.LoadLibrary()
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения локальной библиотеки: %w", err)
	}

	changed := local.Merge(remote, overwrite)
	if changed == 0 {
		return 0, nil
	}
	if err := store.SaveLibrary(local); err != nil {
		return 0, err
	}
	return changed, nil
}

// PullSettings заменяет локальные настройки удаленными
func (c *Client) PullSettings(ctx context.Context, store *settings.Store) (settings.Settings, error) {
	data, err := c.Fetch(ctx, SettingsObject)
	if err != nil {
		return settings.Settings{}, err
	}

	remote := settings.Defaults()
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&remote); err != nil && !errors.Is(err, io.EOF) {
		return settings.Settings{}, fmt.Errorf("%w: удаленные настройки: %v", storage.ErrCorrupt, err)
	}
	remote.DefaultVolume = settings.ClampVolume(remote.DefaultVolume)

	if err := store.Save(remote); err != nil {
		return settings.Settings{}, err
	}
	return remote, nil
}
