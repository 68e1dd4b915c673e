package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/metrics"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/mautops/warehouse-gin/internal/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNotificationNotFound 通知不存在
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService 通知服务接口
// 同时作为引擎的通知出口:引擎产出的缺料/稽核通知经由 Publish 持久化并广播
type NotificationService interface {
	engine.NotificationSink
	List(ctx context.Context, unacknowledgedOnly bool) ([]*model.NotificationModel, error)
	Acknowledge(ctx context.Context, id string, actor engine.Actor) error
	Delete(ctx context.Context, id string, actor engine.Actor) error
}

// notificationService 通知服务实现
type notificationService struct {
	notifications repository.NotificationRepository
	gate          engine.PermissionGate
	hub           *websocket.Hub
	logger        *logrus.Logger
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	notifications repository.NotificationRepository,
	gate engine.PermissionGate,
	hub *websocket.Hub,
	logger *logrus.Logger,
) NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &notificationService{
		notifications: notifications,
		gate:          gate,
		hub:           hub,
		logger:        logger,
	}
}

// Publish 持久化并广播一条通知
func (s *notificationService) Publish(n *engine.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nm := &model.NotificationModel{
		ID:         n.ID,
		PartNumber: n.PartNumber,
		Reason:     n.Reason,
		ReportedBy: n.ReportedBy,
		CreatedAt:  n.CreatedAt,
	}
	if err := s.notifications.Create(ctx, nm); err != nil {
		return err
	}

	metrics.RecordNotification(notificationKind(n))
	if s.hub != nil {
		s.hub.PublishEvent(websocket.EventNotificationCreated, n)
	}
	return nil
}

// List 查询通知
func (s *notificationService) List(ctx context.Context, unacknowledgedOnly bool) ([]*model.NotificationModel, error) {
	return s.notifications.FindAll(ctx, unacknowledgedOnly)
}

// Acknowledge 确认通知
func (s *notificationService) Acknowledge(ctx context.Context, id string, actor engine.Actor) error {
	if actor.Role != engine.RoleAdmin && !s.gate.Can(actor.Role, engine.PermAckNotification) {
		return engine.ErrForbidden
	}

	if err := s.notifications.Acknowledge(ctx, id, actor.ID, time.Now()); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotificationNotFound
		}
		return err
	}

	if s.hub != nil {
		s.hub.PublishEvent(websocket.EventNotificationUpdated, map[string]string{
			"id":             id,
			"acknowledgedBy": actor.ID,
		})
	}
	return nil
}

// Delete 清除通知,不影响其引用的任务
func (s *notificationService) Delete(ctx context.Context, id string, actor engine.Actor) error {
	if actor.Role != engine.RoleAdmin && !s.gate.Can(actor.Role, engine.PermAckNotification) {
		return engine.ErrForbidden
	}

	if err := s.notifications.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotificationNotFound
		}
		return err
	}

	if s.hub != nil {
		s.hub.PublishEvent(websocket.EventNotificationUpdated, map[string]string{"id": id})
	}
	return nil
}

// notificationKind 区分缺料上报和稽核结束两类通知
func notificationKind(n *engine.Notification) string {
	if strings.HasPrefix(n.Reason, "AUDIT ") {
		return "audit"
	}
	return "missing"
}
