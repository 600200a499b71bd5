package comment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stormhead-org/threads/internal/services"
)

type publishedEvent struct {
	event   string
	message any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) WriteMessage(ctx context.Context, event string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{event: event, message: message})
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.event
	}
	return names
}

type testEnv struct {
	service   services.CommentService
	store     *InMemoryStore
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T, config *Config) *testEnv {
	t.Helper()
	store := NewInMemoryStore()
	publisher := &recordingPublisher{}
	return &testEnv{
		service:   NewCommentService(store, zaptest.NewLogger(t), publisher, nil, config),
		store:     store,
		publisher: publisher,
	}
}

func (e *testEnv) post(t *testing.T, recipeID, authorID uuid.UUID, parent *services.CommentNode, content string) *services.CommentNode {
	t.Helper()
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	node, err := e.service.CreateComment(context.Background(), recipeID, authorID, parentID, content)
	require.NoError(t, err)
	return node
}

func (e *testEnv) thread(t *testing.T, recipeID uuid.UUID, viewerID *uuid.UUID) []*services.CommentNode {
	t.Helper()
	nodes, err := e.service.LoadThread(context.Background(), recipeID, viewerID)
	require.NoError(t, err)
	return nodes
}

// counts returns the number of stored comments and likes.
func (e *testEnv) counts() (int, int) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	likes := 0
	for _, users := range e.store.state.likes {
		likes += len(users)
	}
	return len(e.store.state.comments), likes
}

// flatten walks a forest depth first and returns every node.
func flatten(nodes []*services.CommentNode) []*services.CommentNode {
	var result []*services.CommentNode
	stack := append([]*services.CommentNode(nil), nodes...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, node)
		stack = append(stack, node.Replies...)
	}
	return result
}

func ptr[T any](v T) *T {
	return &v
}

var errBroker = errors.New("broker down")
