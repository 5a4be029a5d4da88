package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssetUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_asset_uploads_total",
		Help: "Remote asset uploads by kind and result.",
	}, []string{"kind", "result"})

	// AssetDeleteFailures 远端删除失败的次数，约等于可能的孤儿文件数
	AssetDeleteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_asset_delete_failures_total",
		Help: "Best-effort remote asset deletions that failed.",
	}, []string{"kind"})

	CleanupJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_asset_cleanup_jobs_total",
		Help: "Asset cleanup jobs by outcome.",
	}, []string{"outcome"})

	VideoViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_video_views_total",
		Help: "Video fetches, split by whether the view counter was incremented.",
	}, []string{"counted"})
)
