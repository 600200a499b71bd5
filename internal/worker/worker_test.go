package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	eventpkg "github.com/stormhead-org/threads/internal/event"
	"github.com/stormhead-org/threads/internal/lib"
	"github.com/stormhead-org/threads/internal/services"
	commentpkg "github.com/stormhead-org/threads/internal/services/comment"
)

type channelReader struct {
	messages chan *eventpkg.Message

	mu        sync.Mutex
	committed []*eventpkg.Message
}

func newChannelReader(size int) *channelReader {
	return &channelReader{messages: make(chan *eventpkg.Message, size)}
}

func (r *channelReader) send(event string, data string) *eventpkg.Message {
	message := &eventpkg.Message{Event: event, Data: []byte(data)}
	r.messages <- message
	return message
}

func (r *channelReader) FetchMessage(ctx context.Context) (*eventpkg.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m := <-r.messages:
		return m, nil
	}
}

func (r *channelReader) CommitMessages(ctx context.Context, messages ...*eventpkg.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, messages...)
	return nil
}

func (r *channelReader) commits() []*eventpkg.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventpkg.Message(nil), r.committed...)
}

// flakyService fails the first `failures` author deletions with err.
type flakyService struct {
	services.CommentService

	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (s *flakyService) DeleteAllForAuthor(ctx context.Context, authorID uuid.UUID) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return s.err
	}
	return s.CommentService.DeleteAllForAuthor(ctx, authorID)
}

func (s *flakyService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRouter_SkipsUnknownEvents(t *testing.T) {
	called := false
	router := NewRouter(map[string][]EventHandler{
		eventpkg.USER_DELETED: {func(ctx context.Context, data []byte) error {
			called = true
			return nil
		}},
	})

	require.NoError(t, router.Handle(context.Background(), "something.else", []byte(`{}`)))
	assert.False(t, called)
}

func TestRouter_RejectsInvalidPayload(t *testing.T) {
	called := false
	router := NewRouter(map[string][]EventHandler{
		eventpkg.USER_DELETED: {func(ctx context.Context, data []byte) error {
			called = true
			return nil
		}},
	})

	for _, payload := range []string{`{}`, `{"id": "not-a-uuid"}`, `{"id": 42}`} {
		err := router.Handle(context.Background(), eventpkg.USER_DELETED, []byte(payload))
		assert.ErrorIs(t, err, lib.ErrInvalidArgument, payload)
	}
	assert.False(t, called)

	err := router.Handle(context.Background(), eventpkg.USER_DELETED, []byte(`{"id": "`+uuid.NewString()+`"}`))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWorker_CascadesDeletions(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	service := commentpkg.NewCommentService(commentpkg.NewInMemoryStore(), logger, nil, nil, nil)

	recipeID, otherRecipe, leaving := uuid.New(), uuid.New(), uuid.New()
	_, err := service.CreateComment(ctx, recipeID, leaving, nil, "bye")
	require.NoError(t, err)
	kept, err := service.CreateComment(ctx, recipeID, uuid.New(), nil, "stay")
	require.NoError(t, err)
	_, err = service.CreateComment(ctx, otherRecipe, uuid.New(), nil, "recipe goes away")
	require.NoError(t, err)

	reader := newChannelReader(4)
	worker := NewWorker(logger, reader, service)
	require.NoError(t, worker.Start())
	defer func() {
		require.NoError(t, worker.Stop())
	}()

	reader.send(eventpkg.USER_DELETED, `{"id": "`+leaving.String()+`"}`)
	reader.send(eventpkg.RECIPE_DELETED, `{"id": "`+otherRecipe.String()+`"}`)

	require.Eventually(t, func() bool {
		thread, err := service.LoadThread(ctx, recipeID, nil)
		if err != nil || len(thread) != 1 || thread[0].ID != kept.ID {
			return false
		}
		other, err := service.LoadThread(ctx, otherRecipe, nil)
		return err == nil && len(other) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestWorker_RetriesUnavailableBeforeCommit(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	service := &flakyService{
		CommentService: commentpkg.NewCommentService(commentpkg.NewInMemoryStore(), logger, nil, nil, nil),
		failures:       2,
		err:            lib.UnavailableError(errors.New("connection refused")),
	}

	recipeID, leaving := uuid.New(), uuid.New()
	_, err := service.CreateComment(ctx, recipeID, leaving, nil, "bye")
	require.NoError(t, err)

	reader := newChannelReader(1)
	worker := NewWorker(logger, reader, service)
	worker.retryDelay = time.Millisecond
	require.NoError(t, worker.Start())
	defer func() {
		require.NoError(t, worker.Stop())
	}()

	sent := reader.send(eventpkg.USER_DELETED, `{"id": "`+leaving.String()+`"}`)

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Same(t, sent, reader.commits()[0])
	assert.Equal(t, 3, service.callCount())

	thread, err := service.LoadThread(ctx, recipeID, nil)
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestWorker_CommitsInvalidPayloadWithoutRetry(t *testing.T) {
	logger := zaptest.NewLogger(t)
	service := &flakyService{
		CommentService: commentpkg.NewCommentService(commentpkg.NewInMemoryStore(), logger, nil, nil, nil),
	}

	reader := newChannelReader(2)
	worker := NewWorker(logger, reader, service)
	worker.retryDelay = time.Millisecond
	require.NoError(t, worker.Start())
	defer func() {
		require.NoError(t, worker.Stop())
	}()

	invalid := reader.send(eventpkg.USER_DELETED, `{"id": "not-a-uuid"}`)
	unknown := reader.send("recipe.renamed", `{}`)

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []*eventpkg.Message{invalid, unknown}, reader.commits())
	assert.Zero(t, service.callCount())
}

func TestWorker_StopDuringRetryLeavesMessageUncommitted(t *testing.T) {
	logger := zaptest.NewLogger(t)
	service := &flakyService{
		CommentService: commentpkg.NewCommentService(commentpkg.NewInMemoryStore(), logger, nil, nil, nil),
		failures:       1000,
		err:            lib.UnavailableError(errors.New("connection refused")),
	}

	reader := newChannelReader(1)
	worker := NewWorker(logger, reader, service)
	worker.retryDelay = time.Millisecond
	require.NoError(t, worker.Start())

	reader.send(eventpkg.USER_DELETED, `{"id": "`+uuid.NewString()+`"}`)
	require.Eventually(t, func() bool { return service.callCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, worker.Stop())
	assert.Empty(t, reader.commits())
}

func TestWorker_StopsWhileWaiting(t *testing.T) {
	logger := zaptest.NewLogger(t)
	service := commentpkg.NewCommentService(commentpkg.NewInMemoryStore(), logger, nil, nil, nil)
	worker := NewWorker(logger, newChannelReader(0), service)

	require.NoError(t, worker.Start())

	done := make(chan struct{})
	go func() {
		_ = worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
