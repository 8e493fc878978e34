package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/common"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error { return nil }

func newTestTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn, logger: logging.NewNopLogger()}
}

func TestDefaultTopics(t *testing.T) {
	names := make([]string, 0)
	for _, tc := range DefaultTopics() {
		names = append(names, tc.Name)
	}
	assert.ElementsMatch(t, []string{
		TopicExtractionRequested,
		TopicExtractionCompleted,
		TopicExtractionDeadLetter,
		TopicReferenceRefreshed,
	}, names)
}

func TestCreateTopic_ConfigEntries(t *testing.T) {
	conn := &mockKafkaConn{
		createFunc: func(topics ...kafka.TopicConfig) error {
			require.Len(t, topics, 1)
			assert.Equal(t, "test", topics[0].Topic)
			assert.Contains(t, topics[0].ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: "1000"})
			assert.Contains(t, topics[0].ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: "compact"})
			return nil
		},
	}
	m := newTestTopicManager(conn)
	err := m.CreateTopic(context.Background(), common.TopicConfig{Name: "test", NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 1000, CleanupPolicy: "compact"})
	assert.NoError(t, err)
}

func TestCreateTopic_Invalid(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{})
	assert.Error(t, m.CreateTopic(context.Background(), common.TopicConfig{Name: "x"}))
	assert.Error(t, m.CreateTopic(context.Background(), common.TopicConfig{NumPartitions: 1, ReplicationFactor: 1}))
}

func TestCreateTopic_AlreadyExists(t *testing.T) {
	conn := &mockKafkaConn{
		createFunc: func(...kafka.TopicConfig) error { return errors.New("exists") },
		readFunc: func(topics ...string) ([]kafka.Partition, error) {
			return []kafka.Partition{{Topic: topics[0]}}, nil
		},
	}
	m := newTestTopicManager(conn)
	assert.NoError(t, m.CreateTopic(context.Background(), common.TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))
}

func TestJobRequested_RoundTrip(t *testing.T) {
	job := &sdb.Job{ID: "job-1", Profile: "acros", DocumentKey: "docs/1.txt", SubmittedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	pm, err := NewJobRequestedMessage("apiserver", job)
	require.NoError(t, err)
	assert.Equal(t, TopicExtractionRequested, pm.Topic)
	assert.Equal(t, "job-1", string(pm.Key))
	assert.Equal(t, EventJobRequested, pm.Headers["event_type"])

	decoded, err := DecodeJobRequested(&common.Message{Value: pm.Value})
	require.NoError(t, err)
	assert.Equal(t, *job, *decoded)
}

func TestDecodeJobRequested_WrongEvent(t *testing.T) {
	pm, err := NewJobCompletedMessage("worker", &sdb.JobResult{JobID: "j", Status: sdb.JobStatusCompleted})
	require.NoError(t, err)
	_, err = DecodeJobRequested(&common.Message{Value: pm.Value})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeJobInvalid))

	_, err = DecodeJobRequested(&common.Message{})
	assert.Error(t, err)
	_, err = DecodeJobRequested(&common.Message{Value: []byte("not json")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func TestReferenceRefreshed_RoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	pm, err := NewReferenceRefreshedMessage("worker", ReferenceRefreshedPayload{Version: "v1", Entries: 42, RefreshedAt: at})
	require.NoError(t, err)
	assert.Equal(t, TopicReferenceRefreshed, pm.Topic)
	assert.Equal(t, referenceKey, string(pm.Key))

	p, err := DecodeReferenceRefreshed(&common.Message{Value: pm.Value})
	require.NoError(t, err)
	assert.Equal(t, "v1", p.Version)
	assert.Equal(t, 42, p.Entries)
	assert.True(t, at.Equal(p.RefreshedAt))

	job, err := NewJobRequestedMessage("api", &sdb.Job{ID: "j"})
	require.NoError(t, err)
	_, err = DecodeReferenceRefreshed(&common.Message{Value: job.Value})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

//Personal.AI order the ending
