package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/common"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// Topic Constants
const (
	TopicExtractionRequested  = "sdb.extraction.requested"
	TopicExtractionCompleted  = "sdb.extraction.completed"
	TopicExtractionDeadLetter = "sdb.extraction.dead_letter"
	TopicReferenceRefreshed   = "sdb.reference.refreshed"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventJobRequested       = "extraction.job.requested"
	EventJobCompleted       = "extraction.job.completed"
	EventReferenceRefreshed = "reference.snapshot.refreshed"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// JobRequestedPayload wraps a job submitted for extraction.
type JobRequestedPayload struct {
	Job sdb.Job `json:"job"`
}

// JobCompletedPayload carries the outcome of a job.
type JobCompletedPayload struct {
	Result sdb.JobResult `json:"result"`
}

type ReferenceRefreshedPayload struct {
	Version     string    `json:"version"`
	Entries     int       `json:"entries"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target. An empty payload is
// rejected since every SDB event carries one.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeSerialization, "event payload is empty").WithDetail(e.EventType)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage serializes the envelope for topic, keyed by key so that events
// for one job land on one partition.
func (e *EventEnvelope) ToMessage(topic, key string) (*common.ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	msg := &common.ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// NewJobRequestedMessage builds the request-topic message for job.
func NewJobRequestedMessage(source string, job *sdb.Job) (*common.ProducerMessage, error) {
	env, err := NewEventEnvelope(EventJobRequested, source, JobRequestedPayload{Job: *job})
	if err != nil {
		return nil, err
	}
	return env.ToMessage(TopicExtractionRequested, job.ID)
}

// NewJobCompletedMessage builds the result-topic message for res.
func NewJobCompletedMessage(source string, res *sdb.JobResult) (*common.ProducerMessage, error) {
	env, err := NewEventEnvelope(EventJobCompleted, source, JobCompletedPayload{Result: *res})
	if err != nil {
		return nil, err
	}
	return env.ToMessage(TopicExtractionCompleted, res.JobID)
}

// DecodeJobRequested extracts the job from a request-topic message.
func DecodeJobRequested(msg *common.Message) (*sdb.Job, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return nil, err
	}
	if env.EventType != EventJobRequested {
		return nil, errors.New(errors.ErrCodeJobInvalid, "unexpected event type").WithDetail(env.EventType)
	}
	var p JobRequestedPayload
	if err := env.DecodePayload(&p); err != nil {
		return nil, err
	}
	return &p.Job, nil
}

// referenceKey keys every refresh event so the compacted topic keeps the
// latest one.
const referenceKey = "reference-snapshot"

// NewReferenceRefreshedMessage announces a newly stored reference snapshot.
func NewReferenceRefreshedMessage(source string, p ReferenceRefreshedPayload) (*common.ProducerMessage, error) {
	env, err := NewEventEnvelope(EventReferenceRefreshed, source, p)
	if err != nil {
		return nil, err
	}
	return env.ToMessage(TopicReferenceRefreshed, referenceKey)
}

// DecodeReferenceRefreshed extracts the refresh notice from msg.
func DecodeReferenceRefreshed(msg *common.Message) (*ReferenceRefreshedPayload, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return nil, err
	}
	if env.EventType != EventReferenceRefreshed {
		return nil, errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(env.EventType)
	}
	var p ReferenceRefreshedPayload
	if err := env.DecodePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager manages Kafka topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg common.TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to create topic").WithDetail(cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []common.TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	return m.EnsureTopics(ctx, DefaultTopics())
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

const day = 24 * 3600 * 1000

func DefaultTopics() []common.TopicConfig {
	return []common.TopicConfig{
		{Name: TopicExtractionRequested, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicExtractionCompleted, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicExtractionDeadLetter, NumPartitions: 3, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: TopicReferenceRefreshed, NumPartitions: 1, ReplicationFactor: 3, CleanupPolicy: "compact"},
	}
}

//Personal.AI order the ending
