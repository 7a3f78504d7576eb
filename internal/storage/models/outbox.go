package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// OutboxMessage 事务性发件箱记录。
// 业务行与事件在同一事务内落库，由消息中继轮询投递到RabbitMQ，保证至少一次送达。
type OutboxMessage struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement"`
	MessageUUID      string     `gorm:"type:char(36);not null;uniqueIndex"`
	AggregateID      string     `gorm:"type:varchar(36);not null;index"`
	EventType        string     `gorm:"type:varchar(255);not null"`
	Payload          string     `gorm:"type:json;not null"` // JSON串形式存储
	TargetExchange   string     `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string     `gorm:"type:varchar(255);not null"`
	Status           string     `gorm:"type:varchar(20);default:'PENDING';not null;index:idx_outbox_status_created_at"`
	RetryCount       int        `gorm:"default:0"`
	CreatedAt        time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outbox_status_created_at,sort:asc"`
	ProcessedAt      *time.Time `gorm:"type:datetime(6);null"`
	ErrorMessage     string     `gorm:"type:text"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// NewOutboxMessage 序列化事件负载并构造一条待投递的发件箱记录。
// AggregateID 为事件关联的业务主键（申请ID或职位ID），用于排查与追踪。
func NewOutboxMessage(aggregateID, eventType, exchange, routingKey string, payload interface{}) (*OutboxMessage, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化outbox负载失败: %w", err)
	}

	msgUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成消息UUID失败: %w", err)
	}

	return &OutboxMessage{
		MessageUUID:      msgUUID.String(),
		AggregateID:      aggregateID,
		EventType:        eventType,
		Payload:          string(payloadBytes),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
	}, nil
}
