package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/threads/internal/event"
	"github.com/stormhead-org/threads/internal/lib"
	"github.com/stormhead-org/threads/internal/services"
)

// MessageReader is the consuming side of the broker client. Fetched
// messages are committed explicitly once handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (*eventpkg.Message, error)
	CommitMessages(ctx context.Context, messages ...*eventpkg.Message) error
}

const maxRetryDelay = 30 * time.Second

type Worker struct {
	context        context.Context
	cancel         func()
	waitGroup      sync.WaitGroup
	logger         *zap.Logger
	router         *Router
	brokerClient   MessageReader
	commentService services.CommentService
	retryDelay     time.Duration
}

func NewWorker(logger *zap.Logger, brokerClient MessageReader, commentService services.CommentService) *Worker {
	context, cancel := context.WithCancel(context.Background())
	this := &Worker{
		context:        context,
		cancel:         cancel,
		logger:         logger,
		brokerClient:   brokerClient,
		commentService: commentService,
		retryDelay:     time.Second,
	}
	this.router = NewRouter(
		map[string][]EventHandler{
			eventpkg.USER_DELETED: {
				this.UserDeletedHandler,
			},
			eventpkg.RECIPE_DELETED: {
				this.RecipeDeletedHandler,
			},
		},
	)
	return this
}

func (this *Worker) Start() error {
	this.logger.Info("starting comment cleanup worker")

	this.waitGroup.Add(1)
	go this.worker()
	return nil
}

func (this *Worker) Stop() error {
	this.logger.Info("stopping comment cleanup worker")

	this.cancel()
	this.waitGroup.Wait()
	return nil
}

func (this *Worker) worker() {
	defer this.waitGroup.Done()

	for {
		select {
		case <-this.context.Done():
			return
		default:
		}

		message, err := this.brokerClient.FetchMessage(this.context)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			this.logger.Error("error receiving kafka message", zap.Error(err))
			if !this.wait(this.retryDelay) {
				return
			}
			continue
		}

		if !this.handle(message) {
			return
		}

		err = this.brokerClient.CommitMessages(this.context, message)
		if err != nil && !errors.Is(err, context.Canceled) {
			this.logger.Error(
				"error committing kafka message",
				zap.String("event", message.Event),
				zap.Int64("offset", message.Offset()),
				zap.Error(err),
			)
		}
	}
}

// handle runs the handlers of message until they succeed or fail for good.
// Transient failures are retried with a growing delay. It returns false when
// the worker stops first, leaving message uncommitted.
func (this *Worker) handle(message *eventpkg.Message) bool {
	delay := this.retryDelay
	for attempt := 1; ; attempt++ {
		err := this.router.Handle(this.context, message.Event, message.Data)
		if err == nil {
			return true
		}
		if this.context.Err() != nil {
			return false
		}

		if !retryable(err) {
			this.logger.Error(
				"dropping kafka message",
				zap.String("event", message.Event),
				zap.Int64("offset", message.Offset()),
				zap.Error(err),
			)
			return true
		}

		this.logger.Warn(
			"error handling kafka message, retrying",
			zap.String("event", message.Event),
			zap.Int64("offset", message.Offset()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if !this.wait(delay) {
			return false
		}
		delay = min(2*delay, maxRetryDelay)
	}
}

// retryable reports whether a handler error may go away on its own.
func retryable(err error) bool {
	return errors.Is(err, lib.ErrUnavailable) || errors.Is(err, lib.ErrConflict)
}

func (this *Worker) wait(delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-this.context.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (this *Worker) UserDeletedHandler(ctx context.Context, data []byte) error {
	var message eventpkg.UserDeletedMessage
	err := json.Unmarshal(data, &message)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(message.ID)
	if err != nil {
		return err
	}

	err = this.commentService.DeleteAllForAuthor(ctx, userID)
	if err != nil {
		return err
	}

	this.logger.Info("removed comments of deleted user", zap.String("id", message.ID))
	return nil
}

func (this *Worker) RecipeDeletedHandler(ctx context.Context, data []byte) error {
	var message eventpkg.RecipeDeletedMessage
	err := json.Unmarshal(data, &message)
	if err != nil {
		return err
	}

	recipeID, err := uuid.Parse(message.ID)
	if err != nil {
		return err
	}

	err = this.commentService.DeleteAllForRecipe(ctx, recipeID)
	if err != nil {
		return err
	}

	this.logger.Info("removed comments of deleted recipe", zap.String("id", message.ID))
	return nil
}
