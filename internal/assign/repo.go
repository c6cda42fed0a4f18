package assign

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/taskmentor/pkg/docstore"
)

// Clock returns the current time. Repositories take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// GoalRepo reads and writes goal records.
type GoalRepo struct {
	store docstore.Store
	now   Clock
}

// NewGoalRepo returns a GoalRepo over store. A nil clock uses the system clock.
func NewGoalRepo(store docstore.Store, now Clock) *GoalRepo {
	if now == nil {
		now = systemClock
	}
	return &GoalRepo{store: store, now: now}
}

// Get returns the user's goal record. The bool is false when none exists.
func (r *GoalRepo) Get(ctx context.Context, userID string) (*GoalRecord, bool, error) {
	var rec GoalRecord
	err := r.store.FindOne(ctx, GoalsCollection, docstore.Filter{"userId": userID}, &rec)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("find", GoalsCollection, err)
	}
	return &rec, true, nil
}

// Upsert replaces the user's goals, refreshing updated_at and setting
// created_at only on first write. It reports whether a record was created.
func (r *GoalRepo) Upsert(ctx context.Context, userID, goals string) (created bool, err error) {
	now := r.now()
	res, err := r.store.UpdateOne(ctx, GoalsCollection,
		docstore.Filter{"userId": userID},
		docstore.Update{
			Set:         map[string]any{"goals": goals, "updated_at": now},
			SetOnInsert: map[string]any{"created_at": now},
		},
		docstore.UpdateOptions{Upsert: true},
	)
	if err != nil {
		return false, storeErr("upsert", GoalsCollection, err)
	}
	return res.Upserted(), nil
}

// List returns goal records, optionally restricted to one user.
func (r *GoalRepo) List(ctx context.Context, userID string) ([]GoalRecord, error) {
	filter := docstore.Filter{}
	if userID != "" {
		filter["userId"] = userID
	}
	var out []GoalRecord
	if err := r.store.Find(ctx, GoalsCollection, filter, docstore.FindOptions{}, &out); err != nil {
		return nil, storeErr("find", GoalsCollection, err)
	}
	return out, nil
}

// TaskRepo reads and writes task records.
type TaskRepo struct {
	store docstore.Store
	now   Clock
}

// NewTaskRepo returns a TaskRepo over store. A nil clock uses the system clock.
func NewTaskRepo(store docstore.Store, now Clock) *TaskRepo {
	if now == nil {
		now = systemClock
	}
	return &TaskRepo{store: store, now: now}
}

// ActiveFor returns one task assigned to userID that is not completed.
func (r *TaskRepo) ActiveFor(ctx context.Context, userID string) (*Task, error) {
	var t Task
	err := r.store.FindOne(ctx, TasksCollection, docstore.Filter{
		"assigned_to": userID,
		"status":      docstore.Ne(StatusCompleted),
	}, &t)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find", TasksCollection, err)
	}
	return &t, nil
}

// Insert stores t, stamping created_at when unset, and returns its id.
func (r *TaskRepo) Insert(ctx context.Context, t Task) (docstore.ID, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	id, err := r.store.InsertOne(ctx, TasksCollection, t)
	if err != nil {
		return "", storeErr("insert", TasksCollection, err)
	}
	return id, nil
}

// AssignedTo returns every task assigned to userID in insertion order.
func (r *TaskRepo) AssignedTo(ctx context.Context, userID string) ([]Task, error) {
	var out []Task
	err := r.store.Find(ctx, TasksCollection, docstore.Filter{"assigned_to": userID}, docstore.FindOptions{}, &out)
	if err != nil {
		return nil, storeErr("find", TasksCollection, err)
	}
	return out, nil
}

// ProjectRepo reads project records.
type ProjectRepo struct {
	store docstore.Store
}

// NewProjectRepo returns a ProjectRepo over store.
func NewProjectRepo(store docstore.Store) *ProjectRepo {
	return &ProjectRepo{store: store}
}

// Active returns up to limit active projects.
func (r *ProjectRepo) Active(ctx context.Context, limit int) ([]Project, error) {
	var out []Project
	err := r.store.Find(ctx, ProjectsCollection,
		docstore.Filter{"status": ProjectActive},
		docstore.FindOptions{Limit: int64(limit)},
		&out,
	)
	if err != nil {
		return nil, storeErr("find", ProjectsCollection, err)
	}
	return out, nil
}

// ChatRepo reads and appends chat history.
type ChatRepo struct {
	store docstore.Store
	now   Clock
}

// NewChatRepo returns a ChatRepo over store. A nil clock uses the system clock.
func NewChatRepo(store docstore.Store, now Clock) *ChatRepo {
	if now == nil {
		now = systemClock
	}
	return &ChatRepo{store: store, now: now}
}

// Append stores one chat message authored by userType.
func (r *ChatRepo) Append(ctx context.Context, userID, userType, message string) (ChatMessage, error) {
	msg := ChatMessage{
		UserID:    userID,
		UserType:  userType,
		Message:   message,
		Timestamp: r.now(),
	}
	id, err := r.store.InsertOne(ctx, ChatsCollection, msg)
	if err != nil {
		return ChatMessage{}, storeErr("insert", ChatsCollection, err)
	}
	msg.ID = id
	return msg, nil
}

// History returns the user's chat messages, oldest first.
func (r *ChatRepo) History(ctx context.Context, userID string) ([]ChatMessage, error) {
	var out []ChatMessage
	err := r.store.Find(ctx, ChatsCollection,
		docstore.Filter{"userId": userID},
		docstore.FindOptions{SortBy: "timestamp"},
		&out,
	)
	if err != nil {
		return nil, storeErr("find", ChatsCollection, err)
	}
	return out, nil
}
