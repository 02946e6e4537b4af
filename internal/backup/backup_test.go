package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazadus/go-abloop/internal/segment"
	"github.com/hazadus/go-abloop/internal/settings"
	"github.com/hazadus/go-abloop/internal/storage"
)

// memoryBucket хранит объекты в памяти и реализует оба API
type memoryBucket struct {
	objects   map[string][]byte
	uploadErr error
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: make(map[string][]byte)}
}

func (m *memoryBucket) UploadWithContext(ctx context.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)] = data
	return &s3manager.UploadOutput{Location: aws.StringValue(input.Key)}, nil
}

func (m *memoryBucket) GetObjectWithContext(ctx context.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func newTestClient(bucket *memoryBucket) *Client {
	config := &Config{BucketName: "practice", Prefix: "/abloop/"}
	return NewClientWithAPI(config, bucket, bucket)
}

func TestObjectKey(t *testing.T) {
	c := NewClientWithAPI(&Config{Prefix: "backups/abloop/"}, nil, nil)
	assert.Equal(t, "backups/abloop/segments.yaml", c.ObjectKey(SegmentsObject))

	c = NewClientWithAPI(&Config{}, nil, nil)
	assert.Equal(t, "settings.yaml", c.ObjectKey(SettingsObject))
}

func TestPushFileAndFetch(t *testing.T) {
	bucket := newMemoryBucket()
	client := newTestClient(bucket)

	dir := t.TempDir()
	store := storage.NewSegmentStore(filepath.Join(dir, "segments.yaml"), nil)
	segs := []segment.Segment{{ID: "1", Name: "Вступление", Start: time.Second, End: 5 * time.Second}}
	require.NoError(t, store.SaveSegments("content:aa", "/music/a.mp3", segs))

	var progress bytes.Buffer
	key, err := client.PushFile(context.Background(), store.Path(), SegmentsObject, &progress)
	require.NoError(t, err)
	assert.Equal(t, "abloop/segments.yaml", key)
	assert.NotZero(t, progress.Len(), "прогресс должен получить переданные байты")

	data, err := client.Fetch(context.Background(), SegmentsObject)
	require.NoError(t, err)
	assert.Equal(t, progress.Bytes(), data)
	assert.Contains(t, string(data), "Вступление")
}

func TestPushFileErrors(t *testing.T) {
	bucket := newMemoryBucket()
	client := newTestClient(bucket)

	_, err := client.PushFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), SegmentsObject, nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, settings.NewStore(path, nil).Save(settings.Defaults()))
	bucket.uploadErr = errors.New("access denied")
	_, err = client.PushFile(context.Background(), path, SettingsObject, nil)
	assert.ErrorContains(t, err, "access denied")
}

func TestFetchNotFound(t *testing.T) {
	client := newTestClient(newMemoryBucket())

	_, err := client.Fetch(context.Background(), SegmentsObject)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPullSegmentsMerges(t *testing.T) {
	bucket := newMemoryBucket()
	client := newTestClient(bucket)

	// Удаленная библиотека: два файла
	remoteStore := storage.NewSegmentStore(filepath.Join(t.TempDir(), "segments.yaml"), nil)
	require.NoError(t, remoteStore.SaveSegments("content:aa", "/remote/a.mp3", []segment.Segment{
		{ID: "r1", Name: "Удаленный A", Start: 0, End: time.Second},
	}))
	require.NoError(t, remoteStore.SaveSegments("content:bb", "/remote/b.mp3", []segment.Segment{
		{ID: "r2", Name: "Удаленный B", Start: 0, End: 2 * time.Second},
	}))
	_, err := client.PushFile(context.Background(), remoteStore.Path(), SegmentsObject, nil)
	require.NoError(t, err)

	// Локальная библиотека: только первый файл, со своими отрезками
	localStore := storage.NewSegmentStore(filepath.Join(t.TempDir(), "segments.yaml"), nil)
	require.NoError(t, localStore.SaveSegments("content:aa", "/local/a.mp3", []segment.Segment{
		{ID: "l1", Name: "Локальный A", Start: 0, End: 3 * time.Second},
	}))

	changed, err := client.PullSegments(context.Background(), localStore, false)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	a, err := localStore.LoadSegments("content:aa")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "Локальный A", a[0].Name)

	b, err := localStore.LoadSegments("content:bb")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "Удаленный B", b[0].Name)

	changed, err = client.PullSegments(context.Background(), localStore, true)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	a, err = localStore.LoadSegments("content:aa")
	require.NoError(t, err)
	assert.Equal(t, "Удаленный A", a[0].Name)
}

func TestPullSegmentsCorruptRemote(t *testing.T) {
	bucket := newMemoryBucket()
	bucket.objects["practice/abloop/segments.yaml"] = []byte("files: [oops")
	client := newTestClient(bucket)

	localStore := storage.NewSegmentStore(filepath.Join(t.TempDir(), "segments.yaml"), nil)
	_, err := client.PullSegments(context.Background(), localStore, false)
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestPullSettings(t *testing.T) {
	bucket := newMemoryBucket()
	bucket.objects["practice/abloop/settings.yaml"] = []byte("last_folder: /music\ndefault_volume: 250\n")
	client := newTestClient(bucket)

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	pulled, err := client.PullSettings(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "/music", pulled.LastFolder)
	assert.Equal(t, 100, pulled.DefaultVolume)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, pulled, loaded)
}
