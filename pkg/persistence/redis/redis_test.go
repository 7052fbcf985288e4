package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Get(ctx context.Context, key string) *goredis.StringCmd {
	args := m.Called(ctx, key)

	return goredis.NewStringResult(args.String(0), args.Error(1))
}

func (m *mockClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)

	return goredis.NewStatusResult("OK", args.Error(0))
}

func (m *mockClient) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	args := m.Called(ctx, keys)

	return goredis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

func (m *mockClient) SAdd(ctx context.Context, key string, members ...any) *goredis.IntCmd {
	args := m.Called(ctx, key, members)

	return goredis.NewIntResult(1, args.Error(0))
}

func (m *mockClient) SRem(ctx context.Context, key string, members ...any) *goredis.IntCmd {
	args := m.Called(ctx, key, members)

	return goredis.NewIntResult(1, args.Error(0))
}

func (m *mockClient) SMembers(ctx context.Context, key string) *goredis.StringSliceCmd {
	args := m.Called(ctx, key)

	return goredis.NewStringSliceResult(args.Get(0).([]string), args.Error(1))
}

func (m *mockClient) Ping(ctx context.Context) *goredis.StatusCmd {
	args := m.Called(ctx)

	return goredis.NewStatusResult("PONG", args.Error(0))
}

func (m *mockClient) Close() error {
	return m.Called().Error(0)
}

var _ Client = (*goredis.Client)(nil)

func sampleDocument(name string) *persistence.Document {
	return &persistence.Document{
		Name: name,
		Nodes: []persistence.NodeDocument{
			{ID: "s", Name: "Start", Type: "START"},
			{ID: "t", Name: "Task", Type: "TASK", Details: "fit"},
		},
		Connections: []persistence.ConnectionDocument{{SourceID: "s", TargetID: "t"}},
	}
}

func encoded(t *testing.T, doc *persistence.Document) string {
	t.Helper()

	payload, err := json.Marshal(doc)
	require.NoError(t, err)

	return string(payload)
}

func TestPersistence_SaveWorkflow(t *testing.T) {
	client := &mockClient{}
	client.On("Set", mock.Anything, "workflow:document:pipeline", mock.Anything, time.Duration(0)).Return(nil)
	client.On("SAdd", mock.Anything, "workflow:names", []any{"pipeline"}).Return(nil)

	store := NewWithClient(client, nil)

	require.NoError(t, store.SaveWorkflow(t.Context(), sampleDocument("pipeline")))
	client.AssertExpectations(t)

	payload, ok := client.Calls[0].Arguments.Get(2).([]byte)
	require.True(t, ok)
	assert.JSONEq(t, encoded(t, sampleDocument("pipeline")), string(payload))
}

func TestPersistence_SaveWorkflowErrors(t *testing.T) {
	client := &mockClient{}
	client.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("READONLY"))

	store := NewWithClient(client, nil)

	err := store.SaveWorkflow(t.Context(), sampleDocument("pipeline"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")

	err = store.SaveWorkflow(t.Context(), sampleDocument("bad/name"))
	require.ErrorIs(t, err, persistence.ErrInvalidName)
}

func TestPersistence_WorkflowByName(t *testing.T) {
	client := &mockClient{}
	client.On("Get", mock.Anything, "workflow:document:pipeline").Return(encoded(t, sampleDocument("pipeline")), nil)
	client.On("Get", mock.Anything, "workflow:document:ghost").Return("", goredis.Nil)
	client.On("Get", mock.Anything, "workflow:document:broken").Return(`{"nodes": "x"}`, nil)

	store := NewWithClient(client, nil)

	doc, err := store.WorkflowByName(t.Context(), "pipeline")
	require.NoError(t, err)
	assert.Equal(t, sampleDocument("pipeline"), doc)

	_, err = store.WorkflowByName(t.Context(), "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = store.WorkflowByName(t.Context(), "broken")
	assert.True(t, persistence.IsInvalidDocument(err))
}

func TestPersistence_WorkflowsPrunesStaleNames(t *testing.T) {
	client := &mockClient{}
	client.On("SMembers", mock.Anything, "workflow:names").Return([]string{"zeta", "gone", "alpha"}, nil)
	client.On("Get", mock.Anything, "workflow:document:alpha").Return(encoded(t, sampleDocument("alpha")), nil)
	client.On("Get", mock.Anything, "workflow:document:zeta").Return(encoded(t, sampleDocument("zeta")), nil)
	client.On("Get", mock.Anything, "workflow:document:gone").Return("", goredis.Nil)
	client.On("SRem", mock.Anything, "workflow:names", []any{"gone"}).Return(nil).Once()

	store := NewWithClient(client, nil)

	docs, err := store.Workflows(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Name)
	assert.Equal(t, "zeta", docs[1].Name)
	client.AssertExpectations(t)
}

func TestPersistence_DeleteWorkflow(t *testing.T) {
	client := &mockClient{}
	client.On("Del", mock.Anything, []string{"workflow:document:pipeline"}).Return(1, nil)
	client.On("Del", mock.Anything, []string{"workflow:document:ghost"}).Return(0, nil)
	client.On("SRem", mock.Anything, "workflow:names", mock.Anything).Return(nil)

	store := NewWithClient(client, nil)

	require.NoError(t, store.DeleteWorkflow(t.Context(), "pipeline"))
	assert.True(t, persistence.IsWorkflowNotFound(store.DeleteWorkflow(t.Context(), "ghost")))
}

func TestPersistence_HealthCheckAndClose(t *testing.T) {
	client := &mockClient{}
	client.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	client.On("Ping", mock.Anything).Return(nil)
	client.On("Close").Return(nil)

	store := NewWithClient(client, nil)

	require.Error(t, store.HealthCheck(t.Context()))
	require.NoError(t, store.HealthCheck(t.Context()))
	require.NoError(t, store.Close(t.Context()))
}

func TestNewPersistence_InvalidURL(t *testing.T) {
	_, err := NewPersistence(t.Context(), nil, "http://localhost:6379")
	require.Error(t, err)
}
