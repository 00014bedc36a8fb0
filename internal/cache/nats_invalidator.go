package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/arcade-hub/internal/logging"
	"github.com/nats-io/nats.go"
)

// InvalidationHandler обрабатывает уведомление об инвалидации кеша.
type InvalidationHandler func(game string) error

// InvalidationMessage — сообщение об инвалидации в NATS.
type InvalidationMessage struct {
	Game      string    `json:"game"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NATSInvalidator рассылает инвалидации кеша таблицы рекордов через
// NATS Pub/Sub. Сообщения собственного узла игнорируются при приёме.
type NATSInvalidator struct {
	conn         *nats.Conn
	subject      string
	nodeID       string
	subscription *nats.Subscription
}

// NewNATSInvalidator подключается к NATS и возвращает invalidator.
func NewNATSInvalidator(natsURL, nodeID string) (*NATSInvalidator, error) {
	opts := []nats.Option{
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSInvalidator{
		conn:    conn,
		subject: "arcade.leaderboard.invalidation",
		nodeID:  nodeID,
	}, nil
}

// Publish отправляет уведомление об инвалидации игры.
func (n *NATSInvalidator) Publish(ctx context.Context, game string) error {
	msg := InvalidationMessage{
		Game:      game,
		Timestamp: time.Now(),
		NodeID:    n.nodeID,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ошибка сериализации сообщения: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("ошибка публикации в NATS: %w", err)
	}
	return nil
}

// Subscribe подписывается на инвалидации других узлов.
func (n *NATSInvalidator) Subscribe(handler InvalidationHandler) error {
	sub, err := n.conn.Subscribe(n.subject, func(m *nats.Msg) {
		var msg InvalidationMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			logging.Warn("некорректное сообщение инвалидации: %v", err)
			return
		}
		// Собственные сообщения пропускаем: локальный ключ уже удалён.
		if msg.NodeID == n.nodeID {
			return
		}
		if err := handler(msg.Game); err != nil {
			logging.Warn("обработка инвалидации %q не удалась: %v", msg.Game, err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка подписки на %s: %w", n.subject, err)
	}

	n.subscription = sub
	return nil
}

// Close отписывается и закрывает соединение.
func (n *NATSInvalidator) Close() {
	if n.subscription != nil {
		n.subscription.Unsubscribe()
	}
	n.conn.Close()
}
