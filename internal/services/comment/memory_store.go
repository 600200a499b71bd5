package comment

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stormhead-org/threads/internal/lib"
	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

// InMemoryStore is a development and test implementation of services.Store.
// Every call is serialized by one mutex; transactions run against a copy of
// the state that replaces the original on success. Constraint violations are
// reported with the same gorm errors the Postgres store produces.
type InMemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{state: newMemoryState()}
}

type memoryState struct {
	comments map[uuid.UUID]orm.Comment
	// comment id -> user id -> liked at
	likes map[uuid.UUID]map[uuid.UUID]time.Time
	clock time.Time
}

func newMemoryState() *memoryState {
	return &memoryState{
		comments: make(map[uuid.UUID]orm.Comment),
		likes:    make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (s *memoryState) clone() *memoryState {
	cloned := &memoryState{
		comments: make(map[uuid.UUID]orm.Comment, len(s.comments)),
		likes:    make(map[uuid.UUID]map[uuid.UUID]time.Time, len(s.likes)),
		clock:    s.clock,
	}
	for id, comment := range s.comments {
		cloned.comments[id] = comment
	}
	for commentID, users := range s.likes {
		copied := make(map[uuid.UUID]time.Time, len(users))
		for userID, likedAt := range users {
			copied[userID] = likedAt
		}
		cloned.likes[commentID] = copied
	}
	return cloned
}

// now is strictly increasing so creation order is never ambiguous.
func (s *memoryState) now() time.Time {
	now := time.Now().UTC()
	if !now.After(s.clock) {
		now = s.clock.Add(time.Microsecond)
	}
	s.clock = now
	return now
}

func compareOldestFirst(a, b *orm.Comment) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func compareNewestFirst(a, b *orm.Comment) int {
	return compareOldestFirst(b, a)
}

func (s *memoryState) selectWhere(match func(comment *orm.Comment) bool) []*orm.Comment {
	var result []*orm.Comment
	for _, comment := range s.comments {
		if match(&comment) {
			copied := comment
			result = append(result, &copied)
		}
	}
	return result
}

func (s *memoryState) InsertComment(ctx context.Context, comment *orm.Comment) error {
	if comment.ParentCommentID != nil {
		if _, ok := s.comments[*comment.ParentCommentID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	if _, ok := s.comments[comment.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}

	stored := *comment
	stored.ParentComment = nil
	s.comments[stored.ID] = stored
	return nil
}

func (s *memoryState) SelectCommentByID(ctx context.Context, id uuid.UUID) (*orm.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &comment, nil
}

func (s *memoryState) SelectTopLevelComments(ctx context.Context, recipeID uuid.UUID) ([]*orm.Comment, error) {
	result := s.selectWhere(func(comment *orm.Comment) bool {
		return comment.RecipeID == recipeID && comment.ParentCommentID == nil
	})
	slices.SortFunc(result, compareNewestFirst)
	return result, nil
}

func (s *memoryState) SelectChildComments(ctx context.Context, parentIDs []uuid.UUID) ([]*orm.Comment, error) {
	parents := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}

	result := s.selectWhere(func(comment *orm.Comment) bool {
		return comment.ParentCommentID != nil && parents[*comment.ParentCommentID]
	})
	slices.SortFunc(result, func(a, b *orm.Comment) int {
		if c := bytes.Compare(a.ParentCommentID[:], b.ParentCommentID[:]); c != 0 {
			return c
		}
		return compareOldestFirst(a, b)
	})
	return result, nil
}

func (s *memoryState) SelectCommentsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*orm.Comment, error) {
	result := s.selectWhere(func(comment *orm.Comment) bool {
		return comment.AuthorID == authorID
	})
	slices.SortFunc(result, compareOldestFirst)
	return result, nil
}

func (s *memoryState) SelectCommentsByAuthorWithPagination(ctx context.Context, authorID uuid.UUID, limit int, cursor string) ([]*orm.Comment, error) {
	var position *lib.Cursor
	if cursor != "" {
		var err error
		position, err = lib.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
	}

	result := s.selectWhere(func(comment *orm.Comment) bool {
		return comment.AuthorID == authorID && (position == nil || position.After(comment))
	})
	slices.SortFunc(result, compareNewestFirst)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *memoryState) LockComments(ctx context.Context, ids []uuid.UUID) error {
	return nil
}

func (s *memoryState) ReparentComments(ctx context.Context, ids []uuid.UUID, parentID *uuid.UUID) error {
	if parentID != nil {
		if _, ok := s.comments[*parentID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
	}
	for _, id := range ids {
		comment, ok := s.comments[id]
		if !ok {
			continue
		}
		if parentID != nil {
			parent := *parentID
			comment.ParentCommentID = &parent
		} else {
			comment.ParentCommentID = nil
		}
		s.comments[id] = comment
	}
	return nil
}

// deleteComments removes the given comments as one statement: it fails
// without changes when a surviving comment or a like still references one of
// them.
func (s *memoryState) deleteComments(ids []uuid.UUID) (int64, error) {
	doomed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.comments[id]; ok {
			doomed[id] = true
		}
	}

	for id, comment := range s.comments {
		if doomed[id] || comment.ParentCommentID == nil {
			continue
		}
		if doomed[*comment.ParentCommentID] {
			return 0, gorm.ErrForeignKeyViolated
		}
	}
	for id := range doomed {
		if len(s.likes[id]) > 0 {
			return 0, gorm.ErrForeignKeyViolated
		}
	}

	for id := range doomed {
		delete(s.comments, id)
		delete(s.likes, id)
	}
	return int64(len(doomed)), nil
}

func (s *memoryState) DeleteComment(ctx context.Context, id uuid.UUID) error {
	_, err := s.deleteComments([]uuid.UUID{id})
	return err
}

func (s *memoryState) DeleteCommentsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.deleteComments(ids)
}

func (s *memoryState) DeleteCommentsByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	var ids []uuid.UUID
	for id, comment := range s.comments {
		if comment.RecipeID == recipeID {
			ids = append(ids, id)
		}
	}
	return s.deleteComments(ids)
}

func (s *memoryState) DeleteCommentsByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var ids []uuid.UUID
	for id, comment := range s.comments {
		if comment.AuthorID == authorID {
			ids = append(ids, id)
		}
	}
	return s.deleteComments(ids)
}

func (s *memoryState) InsertCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error {
	if _, ok := s.comments[commentID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	users, ok := s.likes[commentID]
	if !ok {
		users = make(map[uuid.UUID]time.Time)
		s.likes[commentID] = users
	}
	if _, ok := users[userID]; !ok {
		users[userID] = s.now()
	}
	return nil
}

func (s *memoryState) DeleteCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error {
	delete(s.likes[commentID], userID)
	return nil
}

func (s *memoryState) CountCommentLikes(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64)
	for _, id := range commentIDs {
		if n := len(s.likes[id]); n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

func (s *memoryState) SelectLikedCommentIDs(ctx context.Context, commentIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	for _, id := range commentIDs {
		if _, ok := s.likes[id][userID]; ok {
			liked[id] = true
		}
	}
	return liked, nil
}

func (s *memoryState) DeleteCommentLikesByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (int64, error) {
	var deleted int64
	for _, id := range commentIDs {
		deleted += int64(len(s.likes[id]))
		delete(s.likes, id)
	}
	return deleted, nil
}

func (s *memoryState) DeleteCommentLikesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var deleted int64
	for _, users := range s.likes {
		if _, ok := users[userID]; ok {
			delete(users, userID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryState) DeleteCommentLikesByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	var deleted int64
	for id, comment := range s.comments {
		if comment.RecipeID == recipeID {
			deleted += int64(len(s.likes[id]))
			delete(s.likes, id)
		}
	}
	return deleted, nil
}

// memoryTx is the Store view handed to transaction callbacks.
type memoryTx struct {
	*memoryState
}

func (t *memoryTx) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	return fn(t)
}

func (s *InMemoryStore) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{memoryState: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = tx.memoryState
	return nil
}

func (s *InMemoryStore) InsertComment(ctx context.Context, comment *orm.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertComment(ctx, comment)
}

func (s *InMemoryStore) SelectCommentByID(ctx context.Context, id uuid.UUID) (*orm.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectCommentByID(ctx, id)
}

func (s *InMemoryStore) SelectTopLevelComments(ctx context.Context, recipeID uuid.UUID) ([]*orm.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectTopLevelComments(ctx, recipeID)
}

func (s *InMemoryStore) SelectChildComments(ctx context.Context, parentIDs []uuid.UUID) ([]*orm.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectChildComments(ctx, parentIDs)
}

func (s *InMemoryStore) SelectCommentsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*orm.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectCommentsByAuthor(ctx, authorID)
}

func (s *InMemoryStore) SelectCommentsByAuthorWithPagination(ctx context.Context, authorID uuid.UUID, limit int, cursor string) ([]*orm.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectCommentsByAuthorWithPagination(ctx, authorID, limit, cursor)
}

func (s *InMemoryStore) LockComments(ctx context.Context, ids []uuid.UUID) error {
	return nil
}

func (s *InMemoryStore) ReparentComments(ctx context.Context, ids []uuid.UUID, parentID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ReparentComments(ctx, ids, parentID)
}

func (s *InMemoryStore) DeleteComment(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteComment(ctx, id)
}

func (s *InMemoryStore) DeleteCommentsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentsByIDs(ctx, ids)
}

func (s *InMemoryStore) DeleteCommentsByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentsByRecipe(ctx, recipeID)
}

func (s *InMemoryStore) DeleteCommentsByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentsByAuthor(ctx, authorID)
}

func (s *InMemoryStore) InsertCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertCommentLike(ctx, commentID, userID)
}

func (s *InMemoryStore) DeleteCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentLike(ctx, commentID, userID)
}

func (s *InMemoryStore) CountCommentLikes(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountCommentLikes(ctx, commentIDs)
}

func (s *InMemoryStore) SelectLikedCommentIDs(ctx context.Context, commentIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectLikedCommentIDs(ctx, commentIDs, userID)
}

func (s *InMemoryStore) DeleteCommentLikesByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentLikesByCommentIDs(ctx, commentIDs)
}

func (s *InMemoryStore) DeleteCommentLikesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentLikesByUser(ctx, userID)
}

func (s *InMemoryStore) DeleteCommentLikesByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteCommentLikesByRecipe(ctx, recipeID)
}

var _ services.Store = (*InMemoryStore)(nil)
var _ services.Store = (*memoryTx)(nil)
