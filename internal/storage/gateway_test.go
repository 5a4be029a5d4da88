package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/staging"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	mp4Bytes = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")
)

type fakeDurations struct {
	d   float64
	err error
}

func (p fakeDurations) Duration(ctx context.Context, path string) (float64, error) {
	return p.d, p.err
}

// flakyStore 前 failures 次 put 失败，记录每次使用的key
type flakyStore struct {
	failures  int
	putKeys   []string
	bodies    [][]byte
	removeErr error
	removed   []string
}

func (s *flakyStore) put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	s.putKeys = append(s.putKeys, key)
	b, _ := io.ReadAll(body)
	s.bodies = append(s.bodies, b)
	if len(s.putKeys) <= s.failures {
		return errors.New("connection reset")
	}
	return nil
}

func (s *flakyStore) remove(ctx context.Context, key string) error {
	s.removed = append(s.removed, key)
	return s.removeErr
}

func (s *flakyStore) url(key string) string { return "https://cdn.test/" + key }

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func stage(t *testing.T, name string, content []byte) *staging.Handle {
	t.Helper()
	m := staging.NewManager(afero.NewMemMapFs(), "/staging")
	h, err := m.Stage(context.Background(), staging.Upload{Filename: name, Reader: bytes.NewReader(content)})
	require.NoError(t, err)
	return h
}

func TestUpload_RetriesWithSameKey(t *testing.T) {
	store := &flakyStore{failures: 2}
	g := newGateway("fake", store, WithAttempts(3), WithBackOff(zeroBackOff))

	ref, err := g.Upload(context.Background(), stage(t, "a.png", pngBytes), KindImage)
	require.NoError(t, err)

	require.Len(t, store.putKeys, 3)
	assert.Equal(t, store.putKeys[0], store.putKeys[1])
	assert.Equal(t, store.putKeys[0], store.putKeys[2])
	for _, b := range store.bodies {
		assert.Equal(t, pngBytes, b)
	}
	assert.Equal(t, store.putKeys[0], ref.ExternalID)
	assert.Equal(t, "https://cdn.test/"+ref.ExternalID, ref.URL)
	assert.Equal(t, "png", ref.Format)
	assert.True(t, strings.HasPrefix(ref.ExternalID, "images/"))
	assert.Nil(t, ref.DurationSeconds)
}

func TestUpload_GivesUpAfterAttempts(t *testing.T) {
	store := &flakyStore{failures: 10}
	g := newGateway("fake", store, WithAttempts(2), WithBackOff(zeroBackOff))

	_, err := g.Upload(context.Background(), stage(t, "a.png", pngBytes), KindImage)
	require.Error(t, err)
	assert.True(t, apperr.IsUpstream(err))
	assert.Len(t, store.putKeys, 2)
}

func TestUpload_RejectsWrongKind(t *testing.T) {
	store := &flakyStore{}
	g := newGateway("fake", store, WithBackOff(zeroBackOff))

	_, err := g.Upload(context.Background(), stage(t, "notes.mp4", []byte("just some text")), KindVideo)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, store.putKeys)

	_, err = g.Upload(context.Background(), stage(t, "a.png", pngBytes), KindVideo)
	assert.True(t, apperr.IsValidation(err))
}

func TestDetect(t *testing.T) {
	mt, err := Detect(stage(t, "clip.mp4", mp4Bytes), KindVideo)
	require.NoError(t, err)
	assert.Equal(t, ".mp4", mt.Extension())

	_, err = Detect(stage(t, "t.png", []byte("not an image at all")), KindImage)
	assert.True(t, apperr.IsValidation(err))

	_, err = Detect(nil, KindImage)
	assert.True(t, apperr.IsValidation(err))

	g := newGateway("fake", &flakyStore{})
	assert.NoError(t, g.Check(stage(t, "a.png", pngBytes), KindImage))
}

func TestUpload_VideoDuration(t *testing.T) {
	store := &flakyStore{}
	g := newGateway("fake", store, WithDurationReader(fakeDurations{d: 42.5}))

	ref, err := g.Upload(context.Background(), stage(t, "clip.mp4", mp4Bytes), KindVideo)
	require.NoError(t, err)
	require.NotNil(t, ref.DurationSeconds)
	assert.InDelta(t, 42.5, *ref.DurationSeconds, 1e-9)
	assert.Equal(t, "mp4", ref.Format)
	assert.True(t, strings.HasPrefix(ref.ExternalID, "videos/"))
}

func TestUpload_DurationFailureKeepsUpload(t *testing.T) {
	store := &flakyStore{}
	g := newGateway("fake", store, WithDurationReader(fakeDurations{err: errors.New("no ffprobe")}))

	ref, err := g.Upload(context.Background(), stage(t, "clip.mp4", mp4Bytes), KindVideo)
	require.NoError(t, err)
	assert.Nil(t, ref.DurationSeconds)
	assert.NotEmpty(t, ref.ExternalID)
}

func TestDelete_ReportsFailureWithoutError(t *testing.T) {
	store := &flakyStore{removeErr: errors.New("access denied")}
	g := newGateway("fake", store)

	res := g.Delete(context.Background(), "images/x.png", KindImage)
	assert.False(t, res.OK())
	assert.Equal(t, "images/x.png", res.ExternalID)
	assert.Equal(t, KindImage, res.Kind)

	res = g.Delete(context.Background(), "", KindImage)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"images/x.png"}, store.removed)
}

func TestLocalGateway_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := NewLocalGateway(fs, "/assets", "http://localhost:8080/assets/")

	ref, err := g.Upload(context.Background(), stage(t, "a.png", pngBytes), KindImage)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/assets/"+ref.ExternalID, ref.URL)

	stored, err := afero.ReadFile(fs, "/assets/"+ref.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	assert.True(t, g.Delete(context.Background(), ref.ExternalID, KindImage).OK())
	ok, _ := afero.Exists(fs, "/assets/"+ref.ExternalID)
	assert.False(t, ok)

	// 删除已不存在的文件也算成功
	assert.True(t, g.Delete(context.Background(), ref.ExternalID, KindImage).OK())
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	g, err := NewFromConfig(ctx, fs, config.StorageConfig{Driver: "local", LocalDir: "/assets", PublicBaseURL: "http://x/assets", UploadAttempts: 3})
	require.NoError(t, err)
	assert.Equal(t, "local", g.Name())
	assert.Equal(t, 3, g.attempts)
	assert.Nil(t, g.durations)

	_, err = NewFromConfig(ctx, fs, config.StorageConfig{Driver: "local"})
	assert.Error(t, err)
	_, err = NewFromConfig(ctx, fs, config.StorageConfig{Driver: "gcs"})
	assert.Error(t, err)
	_, err = NewFromConfig(ctx, fs, config.StorageConfig{Driver: "s3"})
	assert.Error(t, err, "bucket is required")

	g, err = NewFromConfig(ctx, fs, config.StorageConfig{
		Driver: "s3", Bucket: "b", Region: "us-east-1", Endpoint: "http://127.0.0.1:9000",
		AccessKey: "k", SecretKey: "s", FFprobePath: "ffprobe",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", g.Name())
	assert.NotNil(t, g.durations)
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com/videos/a.mp4", g.store.url("videos/a.mp4"))
}
