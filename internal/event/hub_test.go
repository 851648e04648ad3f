package event

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient captures sent messages for assertions
type fakeClient struct {
	id          string
	workspaceID int32
	mu          sync.Mutex
	messages    [][]byte
	sendErr     error
}

func (f *fakeClient) ID() string         { return f.id }
func (f *fakeClient) WorkspaceID() int32 { return f.workspaceID }
func (f *fakeClient) Close() error       { return nil }

func (f *fakeClient) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeClient) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := &fakeClient{id: "c1", workspaceID: 1}

	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount(1))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount(1))
}

func TestHub_PublishReachesOnlyWorkspaceClients(t *testing.T) {
	hub := NewHub()
	inWorkspace := &fakeClient{id: "c1", workspaceID: 1}
	otherWorkspace := &fakeClient{id: "c2", workspaceID: 2}
	hub.Register(inWorkspace)
	hub.Register(otherWorkspace)

	hub.Publish(1, TransactionCreated(map[string]int{"id": 42}))

	waitFor(t, func() bool { return inWorkspace.received() == 1 })
	assert.Equal(t, 0, otherWorkspace.received())

	var got Event
	require.NoError(t, json.Unmarshal(inWorkspace.messages[0], &got))
	assert.Equal(t, "transaction.created", got.Type)
	assert.Equal(t, EntityTransaction, got.Entity)
}

func TestHub_PublishToEmptyWorkspace(t *testing.T) {
	hub := NewHub()
	// Must not panic or block.
	hub.Publish(7, ScheduleSkipped(nil))
}

func TestEventTypes(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{TransactionCreated(nil), "transaction.created"},
		{TransactionUpdated(nil), "transaction.updated"},
		{TransactionDeleted(nil), "transaction.deleted"},
		{AccountUpdated(nil), "account.updated"},
		{SchedulePosted(nil), "schedule.posted"},
		{ScheduleSkipped(nil), "schedule.skipped"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.event.Type)
	}
}
