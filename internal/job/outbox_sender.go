package job

import (
	"context"
	"log"
	"time"

	"pensionfund/internal/config"
	"pensionfund/internal/infrastructure/mq"
	"pensionfund/internal/model"
	"pensionfund/internal/repository"

	"gorm.io/gorm"
)

// OutboxSender 事务性发件箱投递任务
//
// 养老金事件（缴存/匹配/提取）在业务事务内落库为 PENDING 消息，
// 由本任务异步投递到 kafka，投递成功与业务提交解耦
type OutboxSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 事件投递任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询消息失败: %v", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			log.Printf("[OutboxSender] 更新消息状态失败: id=%d, err=%v", msg.ID, updateErr)
		}
		return
	}

	log.Printf("[OutboxSender] 投递失败: id=%d, key=%s, err=%v", msg.ID, msg.MessageKey, err)

	if msg.RetryCount+1 >= s.cfg.Kafka.MaxRetry {
		if markErr := s.outboxRepo.MarkAsFailed(ctx, msg.ID); markErr != nil {
			log.Printf("[OutboxSender] 标记失败状态出错: id=%d, err=%v", msg.ID, markErr)
		}
		return
	}
	if incrErr := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); incrErr != nil {
		log.Printf("[OutboxSender] 更新重试次数失败: id=%d, err=%v", msg.ID, incrErr)
	}
}
