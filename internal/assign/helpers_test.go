package assign

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/taskmentor/pkg/docstore"
)

// stepClock returns a fixed start time, advancing by one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

var errInjected = errors.New("injected store failure")

// faultyStore wraps a store and fails selected operations.
type faultyStore struct {
	docstore.Store

	mu          sync.Mutex
	inserts     int
	failInserts map[int]bool // 1-based insert numbers to fail
	failFind    bool
	writes      int
}

func (f *faultyStore) InsertOne(ctx context.Context, coll string, doc any) (docstore.ID, error) {
	f.mu.Lock()
	f.inserts++
	n := f.inserts
	f.writes++
	f.mu.Unlock()
	if f.failInserts[n] {
		return "", errInjected
	}
	return f.Store.InsertOne(ctx, coll, doc)
}

func (f *faultyStore) UpdateOne(ctx context.Context, coll string, filter docstore.Filter, u docstore.Update, opts docstore.UpdateOptions) (docstore.UpdateResult, error) {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.Store.UpdateOne(ctx, coll, filter, u, opts)
}

func (f *faultyStore) FindOne(ctx context.Context, coll string, filter docstore.Filter, out any) error {
	if f.failFind {
		return errInjected
	}
	return f.Store.FindOne(ctx, coll, filter, out)
}

func (f *faultyStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fixture struct {
	store *faultyStore
	mem   *docstore.MemoryStore
	repos Repos
	clock *stepClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := docstore.NewMemory()
	store := &faultyStore{Store: mem, failInserts: map[int]bool{}}
	clock := newStepClock()
	return &fixture{
		store: store,
		mem:   mem,
		repos: NewRepos(store, clock.Now),
		clock: clock,
	}
}

func (f *fixture) addProject(t *testing.T, id, name, status string) {
	t.Helper()
	_, err := f.mem.InsertOne(context.Background(), ProjectsCollection, Project{
		ID: docstore.ID(id), Name: name, Status: status,
	})
	require.NoError(t, err)
}

func (f *fixture) setGoals(t *testing.T, userID, goals string) {
	t.Helper()
	_, err := f.repos.Goals.Upsert(context.Background(), userID, goals)
	require.NoError(t, err)
}

func (f *fixture) tasksFor(t *testing.T, userID string) []Task {
	t.Helper()
	tasks, err := f.repos.Tasks.AssignedTo(context.Background(), userID)
	require.NoError(t, err)
	return tasks
}
