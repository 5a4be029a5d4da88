package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/data"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/repository"
	"Orion_Tube/internal/staging"
	"Orion_Tube/internal/storage"
	"Orion_Tube/internal/testutil"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const stagingDir = "/staging"

// fakeAssets 内存里的对象存储，可以让指定类型校验不通过、上传失败、删除失败
type fakeAssets struct {
	mu         sync.Mutex
	seq        int
	live       map[string]storage.AssetKind
	uploads    int
	deleted    []string
	rejectKind storage.AssetKind
	failKind   storage.AssetKind
	deleteErr  error
	duration   float64
}

func (f *fakeAssets) Check(h *staging.Handle, kind storage.AssetKind) error {
	if h == nil {
		return errors.New("nil handle")
	}
	if f.rejectKind == kind {
		return apperr.Validation("%s is not a valid %s file", h.Filename(), kind)
	}
	return nil
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{live: map[string]storage.AssetKind{}, duration: 12.5}
}

func (f *fakeAssets) Upload(ctx context.Context, h *staging.Handle, kind storage.AssetKind) (*storage.AssetRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if h == nil {
		return nil, errors.New("nil handle")
	}
	if f.failKind == kind {
		return nil, fmt.Errorf("upload %s: %w", kind, errUpstream)
	}
	f.seq++
	id := fmt.Sprintf("%ss/%d", kind, f.seq)
	f.live[id] = kind
	ref := &storage.AssetRef{URL: "https://cdn.test/" + id, ExternalID: id, Format: "mp4"}
	if kind == storage.KindVideo {
		d := f.duration
		ref.DurationSeconds = &d
	}
	return ref, nil
}

func (f *fakeAssets) Delete(ctx context.Context, externalID string, kind storage.AssetKind) storage.DeleteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := storage.DeleteResult{ExternalID: externalID, Kind: kind}
	if f.deleteErr != nil {
		res.Err = f.deleteErr
		return res
	}
	f.deleted = append(f.deleted, externalID)
	delete(f.live, externalID)
	return res
}

func (f *fakeAssets) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

var errUpstream = errors.New("provider unavailable")

type fakeJanitor struct {
	mu   sync.Mutex
	jobs []CleanupJob
	err  error
}

func (j *fakeJanitor) Enqueue(ctx context.Context, job CleanupJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.jobs = append(j.jobs, job)
	return nil
}

type fixture struct {
	db        *gorm.DB
	fs        afero.Fs
	stager    *staging.Manager
	assets    *fakeAssets
	janitor   *fakeJanitor
	agg       *viewAggregator
	uow       data.UnitOfWork
	videoRepo repository.VideoRepository
	svc       VideoService

	alice *model.User
	bob   *model.User
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithGate(t, nil, false)
}

func newFixtureWithGate(t *testing.T, gate ViewGate, async bool) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	fs := afero.NewMemMapFs()

	videoRepo := repository.NewVideoRepository(db, nil)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	historyRepo := repository.NewWatchHistoryRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	userRepo := repository.NewUserRepository(db)
	uow := data.NewUnitOfWork(db, videoRepo, likeRepo, commentRepo, historyRepo)

	f := &fixture{
		db:        db,
		fs:        fs,
		stager:    staging.NewManager(fs, stagingDir),
		assets:    newFakeAssets(),
		janitor:   &fakeJanitor{},
		uow:       uow,
		videoRepo: videoRepo,
	}
	f.agg = NewViewAggregator(videoRepo, likeRepo, subRepo, historyRepo, userRepo, gate, async)
	f.svc = f.serviceWith(f.assets)

	f.alice = testutil.CreateUser(t, db, "alice")
	f.bob = testutil.CreateUser(t, db, "bob")
	return f
}

// serviceWith 换一个对象存储构造VideoService，其余依赖沿用fixture的
func (f *fixture) serviceWith(assets AssetStore) VideoService {
	return NewVideoService(f.uow, f.videoRepo, f.stager, assets, f.janitor, f.agg,
		config.ListingConfig{SampleSize: 3, DefaultLimit: 10, MaxLimit: 100})
}

// failWrites 让之后所有指定类型的写库操作失败：create / update
func (f *fixture) failWrites(t *testing.T, op string) {
	t.Helper()
	fail := func(tx *gorm.DB) { tx.AddError(errDiskFull) }
	switch op {
	case "create":
		require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_create", fail))
	case "update":
		require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:fail_update", fail))
	default:
		t.Fatalf("unknown op %s", op)
	}
}

var errDiskFull = errors.New("disk full")

func upload(name, body string) *staging.Upload {
	return &staging.Upload{Filename: name, Reader: strings.NewReader(body)}
}

func (f *fixture) createInput(t *testing.T, actor *model.User, title string) CreateVideoInput {
	t.Helper()
	in, err := NewCreateVideoInput(actor.ID, title, "desc of "+title, upload("v.mp4", "video-bytes"), upload("t.png", "image-bytes"))
	require.NoError(t, err)
	return in
}

// stagedFiles 暂存目录下残留的文件数
func (f *fixture) stagedFiles(t *testing.T) int {
	t.Helper()
	entries, err := afero.ReadDir(f.fs, stagingDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) count(t *testing.T, m any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Where(where, args...).Count(&n).Error)
	return n
}
