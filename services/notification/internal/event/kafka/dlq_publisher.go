package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
)

// MessageWriter часть kafka.Writer, нужная publisher'у
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Этапы, на которых сообщение признано необрабатываемым
const (
	StageDecode = "decode"
	StageHandle = "handle"
)

// Заголовки DLQ сообщения в дополнение к заголовкам оригинала
const (
	headerDLQStage       = "dlq_stage"
	headerDLQSourceTopic = "dlq_source_topic"
)

// Failure сообщение, которое не удалось обработать
type Failure struct {
	Message   kafka.Message
	Err       error
	Stage     string
	EventType string
	EventID   string
	Attempts  int
}

// DLQPublisher пишет необработанные сообщения в DLQ топик
type DLQPublisher struct {
	logger *zap.Logger
	writer MessageWriter
	now    func() time.Time
}

// NewDLQWriter создаёт writer для DLQ топика
func NewDLQWriter(brokers []string, clientID, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: clientID},
	}
}

// NewDLQPublisher создаёт новый DLQ publisher
func NewDLQPublisher(logger *zap.Logger, writer MessageWriter) *DLQPublisher {
	return &DLQPublisher{
		logger: logger,
		writer: writer,
		now:    time.Now,
	}
}

// DLQMessage тело сообщения в DLQ. Оригинал хранится целиком для ручного replay.
type DLQMessage struct {
	SourceTopic     string    `json:"source_topic"`
	SourcePartition int       `json:"source_partition"`
	SourceOffset    int64     `json:"source_offset"`
	Key             string    `json:"key"`
	Payload         string    `json:"payload"`
	Stage           string    `json:"stage"`
	Error           string    `json:"error"`
	Attempts        int       `json:"attempts"`
	EventType       string    `json:"event_type,omitempty"`
	EventID         string    `json:"event_id,omitempty"`
	FailedAt        time.Time `json:"failed_at"`
}

// Publish пишет failure в DLQ. Key и заголовки оригинала (event_type, traceparent)
// сохраняются, так что replay попадает в ту же партицию и ту же трассу.
func (p *DLQPublisher) Publish(ctx context.Context, f Failure) error {
	body := DLQMessage{
		SourceTopic:     f.Message.Topic,
		SourcePartition: f.Message.Partition,
		SourceOffset:    f.Message.Offset,
		Key:             string(f.Message.Key),
		Payload:         string(f.Message.Value),
		Stage:           f.Stage,
		Attempts:        f.Attempts,
		EventType:       f.EventType,
		EventID:         f.EventID,
		FailedAt:        p.now().UTC(),
	}
	if f.Err != nil {
		body.Error = f.Err.Error()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal dlq message: %w", err)
	}

	headers := make([]kafka.Header, 0, len(f.Message.Headers)+3)
	for _, h := range f.Message.Headers {
		if h.Key == events.HeaderEventType {
			continue
		}
		headers = append(headers, h)
	}
	if f.EventType != "" {
		headers = append(headers, kafka.Header{Key: events.HeaderEventType, Value: []byte(f.EventType)})
	}
	headers = append(headers,
		kafka.Header{Key: headerDLQStage, Value: []byte(f.Stage)},
		kafka.Header{Key: headerDLQSourceTopic, Value: []byte(f.Message.Topic)},
	)

	log := p.logger.With(
		zap.String("source_topic", f.Message.Topic),
		zap.Int("source_partition", f.Message.Partition),
		zap.Int64("source_offset", f.Message.Offset),
		zap.String("stage", f.Stage),
	)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: f.Message.Key, Value: payload, Headers: headers}); err != nil {
		log.Error("failed to publish message to DLQ", zap.Error(err))
		return fmt.Errorf("write dlq message: %w", err)
	}
	log.Warn("message moved to DLQ", zap.String("error", body.Error), zap.Int("attempts", f.Attempts))
	return nil
}

// Close закрывает writer
func (p *DLQPublisher) Close() error {
	p.logger.Info("closing DLQ publisher")
	return p.writer.Close()
}
