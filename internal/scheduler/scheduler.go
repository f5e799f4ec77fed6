package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 首轮评估前的短暂延迟，避免启动瞬间打满上游接口
const firstRunDelay = 3 * time.Second

// TickRunner 单个聊天的一轮评估
type TickRunner interface {
	RunTick(ctx context.Context, chatID int64) error
}

// ChatLister 返回需要调度的聊天ID
type ChatLister interface {
	ListChatIDs() ([]int64, error)
}

// Scheduler 为每个聊天维护一个独立的心跳任务
type Scheduler struct {
	runner      TickRunner
	lister      ChatLister
	interval    time.Duration
	tickTimeout time.Duration

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	wg      sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewScheduler 创建调度器
func NewScheduler(runner TickRunner, lister ChatLister, interval, tickTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:      runner,
		lister:      lister,
		interval:    interval,
		tickTimeout: tickTimeout,
		cancels:     make(map[int64]context.CancelFunc),
		rootCtx:     ctx,
		rootCancel:  cancel,
	}
}

// Start 为所有已建档的聊天启动心跳任务
func (s *Scheduler) Start() error {
	ids, err := s.lister.ListChatIDs()
	if err != nil {
		return err
	}

	for _, chatID := range ids {
		s.EnsureChatJob(chatID)
	}

	zap.L().Info("🚀 调度器启动完成",
		zap.Int("chats", len(ids)),
		zap.Duration("interval", s.interval))
	return nil
}

// EnsureChatJob 确保聊天的心跳任务在运行；已存在则不重复启动
func (s *Scheduler) EnsureChatJob(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cancels[chatID]; exists {
		return
	}

	ctx, cancel := context.WithCancel(s.rootCtx)
	s.cancels[chatID] = cancel

	s.wg.Add(1)
	go s.runLoop(ctx, chatID)

	zap.L().Info("🆕 聊天心跳任务已启动", zap.Int64("chat_id", chatID))
}

// CancelChatJob 停止聊天的心跳任务
func (s *Scheduler) CancelChatJob(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, exists := s.cancels[chatID]; exists {
		cancel()
		delete(s.cancels, chatID)
		zap.L().Info("📴 聊天心跳任务已停止", zap.Int64("chat_id", chatID))
	}
}

// Stop 停止全部任务并等待在途评估结束
func (s *Scheduler) Stop() {
	s.rootCancel()

	s.mu.Lock()
	s.cancels = make(map[int64]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()
	zap.L().Info("📴 调度器已停止")
}

// runLoop 单个聊天的心跳循环
// 每轮最多一个在途评估；上一轮未结束时直接跳过本轮
func (s *Scheduler) runLoop(ctx context.Context, chatID int64) {
	defer s.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(firstRunDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx, chatID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, chatID)
		}
	}
}

// runOnce 带超时与panic恢复地执行一轮评估
func (s *Scheduler) runOnce(ctx context.Context, chatID int64) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("❌ 评估任务panic",
				zap.Int64("chat_id", chatID),
				zap.Any("panic", r))
		}
	}()

	tickCtx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	start := time.Now()
	if err := s.runner.RunTick(tickCtx, chatID); err != nil {
		zap.L().Warn("⚠️ 评估任务失败",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return
	}

	zap.L().Debug("评估任务完成",
		zap.Int64("chat_id", chatID),
		zap.Duration("elapsed", time.Since(start)))
}
