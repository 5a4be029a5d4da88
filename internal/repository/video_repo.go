package repository

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"Orion_Tube/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeEscaper 搜索词按字面匹配，LIKE 的通配符用 ! 转义
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SortColumns 排序字段白名单，key 是接口参数，value 是数据库列名
var SortColumns = map[string]string{
	"createdAt": "created_at",
	"views":     "views",
	"duration":  "duration",
	"title":     "title",
}

// VideoQuery 列表查询条件，OwnerID 为0表示不限作者
type VideoQuery struct {
	Search        string
	OwnerID       uint64
	PublishedOnly bool
	SortColumn    string
	Desc          bool
	Offset        int
	Limit         int
}

type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	FindByID(ctx context.Context, videoID uint64) (*model.Video, error)
	// 带锁的查找，只在事务里使用
	FindByIDForUpdate(ctx context.Context, videoID uint64) (*model.Video, error)
	Save(ctx context.Context, video *model.Video) error
	Delete(ctx context.Context, videoID uint64) error
	IncrementViews(ctx context.Context, videoID uint64) error

	List(ctx context.Context, q VideoQuery) ([]model.Video, int64, error)
	Sample(ctx context.Context, q VideoQuery, size int) ([]model.Video, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Video, error)

	GetVideoCache(ctx context.Context, videoID uint64) (*model.Video, error)
	SetVideoCache(ctx context.Context, video *model.Video) error
	InvalidateCache(ctx context.Context, videoID uint64)

	WithTx(tx *gorm.DB) VideoRepository
}

type videoRepository struct {
	db  *gorm.DB
	rdb *redis.Client // 可以为空，为空时不走缓存
}

func NewVideoRepository(db *gorm.DB, rdb *redis.Client) VideoRepository {
	return &videoRepository{
		db:  db,
		rdb: rdb,
	}
}

// WithTx 返回使用事务的副本，事务里不读写缓存，提交后由调用方失效缓存
func (r *videoRepository) WithTx(tx *gorm.DB) VideoRepository {
	return &videoRepository{
		db: tx,
	}
}

// Create 新视频一律是草稿，两个远端文件的ExternalID必须都有
func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	if err := video.CheckAssets(); err != nil {
		return apperr.Validation("%v", err)
	}
	video.IsPublished = false
	video.Views = 0
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return apperr.FromDB(err, "create video")
	}
	return nil
}

// 利用videoID找视频，preload其中的Owner结构：1、先读缓存 2、未命中读数据库 3、写回缓存
func (r *videoRepository) FindByID(ctx context.Context, videoID uint64) (*model.Video, error) {
	video, err := r.GetVideoCache(ctx, videoID)
	if err == nil && video != nil {
		return video, nil
	}
	if err != nil {
		// Redis出错不影响读库
		logger.Log.WithError(err).WithField("video_id", videoID).Warn("读取视频缓存失败")
	}

	// 读库之前记下版本号，读库期间有写操作就不写回缓存
	seen, verErr := r.cacheVersion(ctx, videoID)

	var dbVideo model.Video
	err = r.db.WithContext(ctx).Preload("Owner").First(&dbVideo, videoID).Error
	if err != nil {
		return nil, apperr.FromDB(err, "find video")
	}

	if verErr == nil {
		if err := r.setVideoCacheIfUnchanged(ctx, &dbVideo, seen); err != nil {
			logger.Log.WithError(err).WithField("video_id", videoID).Warn("写回视频缓存失败")
		}
	}
	return &dbVideo, nil
}

// FindByIDForUpdate SELECT ... FOR UPDATE，锁跟随事务的生命周期，直到Execute包裹的事务结束
func (r *videoRepository) FindByIDForUpdate(ctx context.Context, videoID uint64) (*model.Video, error) {
	var video model.Video
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := db.First(&video, videoID).Error; err != nil {
		return nil, apperr.FromDB(err, "lock video")
	}
	return &video, nil
}

// Save 只更新可变字段，owner_id 和 views 不在其中
func (r *videoRepository) Save(ctx context.Context, video *model.Video) error {
	err := r.db.WithContext(ctx).Model(video).
		Select("title", "description", "thumbnail_url", "thumbnail_external_id", "is_published", "updated_at").
		Updates(video).Error
	if err != nil {
		return apperr.FromDB(err, "save video")
	}
	r.InvalidateCache(ctx, video.ID)
	return nil
}

func (r *videoRepository) Delete(ctx context.Context, videoID uint64) error {
	res := r.db.WithContext(ctx).Delete(&model.Video{}, videoID)
	if res.Error != nil {
		return apperr.FromDB(res.Error, "delete video")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("video")
	}
	r.InvalidateCache(ctx, videoID)
	return nil
}

// IncrementViews UPDATE videos SET views = views + 1 WHERE id = ?，原子自增，不更新updated_at
func (r *videoRepository) IncrementViews(ctx context.Context, videoID uint64) error {
	res := r.db.WithContext(ctx).Model(&model.Video{}).Where("id = ?", videoID).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return apperr.FromDB(res.Error, "increment views")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("video")
	}
	r.InvalidateCache(ctx, videoID)
	return nil
}

// filtered 构造公共的过滤条件，每次调用返回新的语句，Count和Find互不影响
func (r *videoRepository) filtered(ctx context.Context, q VideoQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Video{})
	if q.PublishedOnly {
		db = db.Where("is_published = ?", true)
	}
	if q.OwnerID != 0 {
		db = db.Where("owner_id = ?", q.OwnerID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		db = db.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", like, like)
	}
	return db
}

// List 分页模式：1、统计总数 2、按白名单列排序，id做第二排序保证翻页稳定 3、offset/limit取一页
func (r *videoRepository) List(ctx context.Context, q VideoQuery) ([]model.Video, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "count videos")
	}

	col := q.SortColumn
	if col == "" {
		col = "created_at"
	}
	var videos []model.Video
	err := r.filtered(ctx, q).
		Preload("Owner").
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: q.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: q.Desc}).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&videos).Error
	if err != nil {
		return nil, 0, apperr.FromDB(err, "list videos")
	}
	return videos, total, nil
}

// Sample 随机抽样模式，MySQL用RAND()，SQLite用RANDOM()
func (r *videoRepository) Sample(ctx context.Context, q VideoQuery, size int) ([]model.Video, error) {
	random := "RANDOM()"
	if r.db.Dialector.Name() == "mysql" {
		random = "RAND()"
	}
	var videos []model.Video
	err := r.filtered(ctx, q).Preload("Owner").Order(random).Limit(size).Find(&videos).Error
	if err != nil {
		return nil, apperr.FromDB(err, "sample videos")
	}
	return videos, nil
}

// ListByOwner 作者自己的全部视频，包括草稿
func (r *videoRepository) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Video, error) {
	var videos []model.Video
	err := r.db.WithContext(ctx).Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("created_at desc").Order("id desc").
		Find(&videos).Error
	if err != nil {
		return nil, apperr.FromDB(err, "list owner videos")
	}
	return videos, nil
}

// 返回存储单个视频信息的字符串Key
func (r *videoRepository) keyVideoInfo(videoID uint64) string {
	return fmt.Sprintf("video:info:%d", videoID)
}

// 从Redis缓存中获取单个Video信息：1、利用VideoID组装key 2、拿key去rdb中寻找videoJSON 3、反序列化
func (r *videoRepository) GetVideoCache(ctx context.Context, videoID uint64) (*model.Video, error) {
	if r.rdb == nil {
		return nil, nil
	}
	videoJSON, err := r.rdb.Get(ctx, r.keyVideoInfo(videoID)).Result()
	if err == redis.Nil {
		return nil, nil // 缓存不存在，但Redis正常工作
	} else if err != nil {
		return nil, err
	}
	var video model.Video
	if err := json.Unmarshal([]byte(videoJSON), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// 将单个视频信息存入Redis缓存，过期时间加上随机性防止缓存雪崩
func (r *videoRepository) SetVideoCache(ctx context.Context, video *model.Video) error {
	if r.rdb == nil {
		return nil
	}
	videoJSON, err := json.Marshal(video)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.keyVideoInfo(video.ID), videoJSON, cacheTTL()).Err()
}

func cacheTTL() time.Duration {
	return time.Minute*5 + time.Duration(rand.Intn(60))*time.Second
}

// 视频行的写版本号，每次失效缓存时自增
func (r *videoRepository) keyVideoVersion(videoID uint64) string {
	return fmt.Sprintf("video:ver:%d", videoID)
}

const versionTTL = 24 * time.Hour

var errStaleRead = errors.New("video changed while loading")

func (r *videoRepository) cacheVersion(ctx context.Context, videoID uint64) (string, error) {
	if r.rdb == nil {
		return "", nil
	}
	ver, err := r.rdb.Get(ctx, r.keyVideoVersion(videoID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return ver, err
}

// setVideoCacheIfUnchanged WATCH 版本号：1、版本号和读库前一致才写缓存 2、不一致或者EXEC时被改动就放弃，下次读再回填
func (r *videoRepository) setVideoCacheIfUnchanged(ctx context.Context, video *model.Video, seen string) error {
	if r.rdb == nil {
		return nil
	}
	videoJSON, err := json.Marshal(video)
	if err != nil {
		return err
	}
	verKey := r.keyVideoVersion(video.ID)
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != seen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.keyVideoInfo(video.ID), videoJSON, cacheTTL())
			return nil
		})
		return err
	}, verKey)
	if errors.Is(err, errStaleRead) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// InvalidateCache 每次写视频行之后调用：版本号自增和删缓存放在一个MULTI里
func (r *videoRepository) InvalidateCache(ctx context.Context, videoID uint64) {
	if r.rdb == nil {
		return
	}
	verKey := r.keyVideoVersion(videoID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, versionTTL)
		pipe.Del(ctx, r.keyVideoInfo(videoID))
		return nil
	})
	if err != nil {
		logger.Log.WithError(err).WithField("video_id", videoID).Warn("删除视频缓存失败")
	}
}
