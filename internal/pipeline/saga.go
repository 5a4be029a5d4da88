// Package pipeline 按顺序执行一组步骤，任一步失败时逆序补偿已完成的步骤
package pipeline

import (
	"context"
	"fmt"

	"Orion_Tube/pkg/logger"
)

// Step 一个可补偿的步骤，Compensate 可以为空
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context)
}

type Saga struct {
	name  string
	steps []Step
}

func New(name string) *Saga {
	return &Saga{name: name}
}

func (s *Saga) Then(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run 执行全部步骤。失败时补偿使用独立于请求的ctx，客户端断开也要把远端文件删掉
func (s *Saga) Run(ctx context.Context) error {
	logCtx := logger.Log.WithField("saga", s.name)

	done := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(ctx, done)
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		if err := step.Run(ctx); err != nil {
			logCtx.WithError(err).WithField("step", step.Name).Warn("步骤失败，开始补偿")
			s.compensate(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, done []Step) {
	cctx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].Compensate == nil {
			continue
		}
		logger.Log.WithField("saga", s.name).WithField("step", done[i].Name).Info("补偿步骤")
		done[i].Compensate(cctx)
	}
}
