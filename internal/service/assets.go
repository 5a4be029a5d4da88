package service

import (
	"Orion_Tube/internal/pipeline"
	"Orion_Tube/internal/staging"
	"Orion_Tube/internal/storage"
	"Orion_Tube/pkg/logger"
	"context"
	"fmt"
)

// AssetStore 远端对象存储，storage.Gateway 实现了它。Check 只读本地暂存文件
type AssetStore interface {
	Check(h *staging.Handle, kind storage.AssetKind) error
	Upload(ctx context.Context, h *staging.Handle, kind storage.AssetKind) (*storage.AssetRef, error)
	Delete(ctx context.Context, externalID string, kind storage.AssetKind) storage.DeleteResult
}

// assetPipeline 视频和用户图片共用的暂存、校验、上传和补偿步骤
type assetPipeline struct {
	stager  *staging.Manager
	assets  AssetStore
	janitor AssetJanitor
}

func newAssetPipeline(stager *staging.Manager, assets AssetStore, janitor AssetJanitor) assetPipeline {
	if janitor == nil {
		janitor = NewLogJanitor()
	}
	return assetPipeline{stager: stager, assets: assets, janitor: janitor}
}

// discard 尽力删除远端文件，失败的交给清理队列
func (p assetPipeline) discard(ctx context.Context, externalID string, kind storage.AssetKind) {
	res := p.assets.Delete(ctx, externalID, kind)
	if res.OK() {
		return
	}
	job := CleanupJob{ExternalID: res.ExternalID, Kind: res.Kind, Attempt: 1}
	if err := p.janitor.Enqueue(ctx, job); err != nil {
		logger.Log.WithError(err).
			WithField("external_id", externalID).
			WithField("kind", kind).
			Error("【严重】清理任务投递失败，远端文件成为孤儿，需人工核对")
	}
}

// stageStep 把上传内容落盘，句柄由调用方 defer Release
func (p assetPipeline) stageStep(name string, up staging.Upload, out **staging.Handle) pipeline.Step {
	return pipeline.Step{
		Name: name,
		Run: func(ctx context.Context) error {
			h, err := p.stager.Stage(ctx, up)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*out = h
			return nil
		},
	}
}

// staged 一个待校验的暂存文件
type staged struct {
	handle **staging.Handle
	kind   storage.AssetKind
}

// checkStep 所有暂存文件的内容校验放在第一次远端写入之前
func (p assetPipeline) checkStep(files ...staged) pipeline.Step {
	return pipeline.Step{
		Name: "validate",
		Run: func(ctx context.Context) error {
			for _, f := range files {
				if err := p.assets.Check(*f.handle, f.kind); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// uploadStep 上传暂存文件，补偿时删除刚上传的远端文件
func (p assetPipeline) uploadStep(name string, h **staging.Handle, kind storage.AssetKind, out **storage.AssetRef) pipeline.Step {
	return pipeline.Step{
		Name: name,
		Run: func(ctx context.Context) error {
			ref, err := p.assets.Upload(ctx, *h, kind)
			if err != nil {
				return err
			}
			*out = ref
			return nil
		},
		Compensate: func(ctx context.Context) {
			if *out != nil {
				p.discard(ctx, (*out).ExternalID, kind)
			}
		},
	}
}
