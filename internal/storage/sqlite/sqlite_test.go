package sqlite

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func newTask(userID, title, description string, completed bool, at time.Time) *models.Task {
	return &models.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   completed,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func seedTasks(t *testing.T, repo storage.TaskRepository, tasks ...*models.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, repo.Create(context.Background(), task))
	}
}

func TestTaskRepository_CreateAndGet(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	task := newTask("owner", "Buy bread", "", false, now)
	require.NoError(t, repo.Create(ctx, task))
	require.NotZero(t, task.ID)

	t.Run("owner sees the task", func(t *testing.T) {
		got, err := repo.Get(ctx, "owner", task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy bread", got.Title)
		assert.Equal(t, "owner", got.UserID)
		assert.True(t, got.CreatedAt.Equal(now))
	})

	t.Run("other identity gets not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "intruder", task.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("missing id gets not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "owner", task.ID+100)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestTaskRepository_List(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }

	seedTasks(t, repo,
		newTask("owner", "delta", "first", false, day(1)),
		newTask("owner", "alpha", "second", true, day(2)),
		newTask("owner", "charlie", "third", false, day(3)),
		newTask("owner", "bravo", "fourth", true, day(4)),
		newTask("owner", "Buscar keyword unica", "Busqueda", false, day(5)),
		newTask("other", "keyword unica ajena", "not yours", false, day(5)),
	)

	list := func(t *testing.T, filter storage.TaskFilter) ([]*models.Task, int) {
		t.Helper()
		filter.UserID = "owner"
		tasks, count, err := repo.List(ctx, filter)
		require.NoError(t, err)
		return tasks, count
	}

	t.Run("only the owner's tasks newest first", func(t *testing.T) {
		tasks, count := list(t, storage.TaskFilter{})
		assert.Equal(t, 5, count)
		require.Len(t, tasks, 5)
		assert.Equal(t, "Buscar keyword unica", tasks[0].Title)
		for _, task := range tasks {
			assert.Equal(t, "owner", task.UserID)
		}
	})

	t.Run("search matches every term", func(t *testing.T) {
		tasks, count := list(t, storage.TaskFilter{SearchTerms: storage.SplitSearchTerms("keyword unica")})
		assert.Equal(t, 1, count)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Buscar keyword unica", tasks[0].Title)
	})

	t.Run("search looks into the description case-insensitively", func(t *testing.T) {
		tasks, _ := list(t, storage.TaskFilter{SearchTerms: []string{"THIRD"}})
		require.Len(t, tasks, 1)
		assert.Equal(t, "charlie", tasks[0].Title)
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		tasks, count := list(t, storage.TaskFilter{SearchTerms: []string{"%"}})
		assert.Zero(t, count)
		assert.Empty(t, tasks)
	})

	t.Run("ordering by title", func(t *testing.T) {
		tasks, _ := list(t, storage.TaskFilter{Ordering: storage.ParseOrdering("title")})
		titles := make([]string, len(tasks))
		for i, task := range tasks {
			titles[i] = task.Title
		}
		assert.True(t, sort.StringsAreSorted(titles), "titles not sorted: %v", titles)
	})

	t.Run("completed filter", func(t *testing.T) {
		completed := true
		tasks, count := list(t, storage.TaskFilter{Completed: &completed})
		assert.Equal(t, 2, count)
		for _, task := range tasks {
			assert.True(t, task.Completed)
		}
	})

	t.Run("created range", func(t *testing.T) {
		from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
		until := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
		tasks, count := list(t, storage.TaskFilter{
			CreatedFrom:  &from,
			CreatedUntil: &until,
			Ordering:     storage.ParseOrdering("created_at"),
		})
		assert.Equal(t, 2, count)
		require.Len(t, tasks, 2)
		assert.Equal(t, "alpha", tasks[0].Title)
		assert.Equal(t, "charlie", tasks[1].Title)
	})

	t.Run("pagination keeps the total count", func(t *testing.T) {
		tasks, count := list(t, storage.TaskFilter{
			Ordering: storage.ParseOrdering("created_at"),
			Limit:    2,
			Offset:   2,
		})
		assert.Equal(t, 5, count)
		require.Len(t, tasks, 2)
		assert.Equal(t, "charlie", tasks[0].Title)
		assert.Equal(t, "bravo", tasks[1].Title)
	})
}

func TestTaskRepository_Update(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := newTask("owner", "old", "keep me", false, created)
	seedTasks(t, repo, task)

	title := "new"
	later := created.Add(time.Hour)
	got, err := repo.Update(ctx, "owner", task.ID, storage.TaskUpdate{Title: &title}, later)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "keep me", got.Description)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.Equal(later))

	_, err = repo.Update(ctx, "intruder", task.ID, storage.TaskUpdate{Title: &title}, later)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskRepository_Toggle(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()
	task := newTask("owner", "toggle", "", false, time.Now().UTC())
	seedTasks(t, repo, task)

	got, err := repo.Toggle(ctx, "owner", task.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, got.Completed)

	got, err = repo.Toggle(ctx, "owner", task.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, got.Completed)

	explicit := false
	for i := 0; i < 3; i++ {
		got, err = repo.Toggle(ctx, "owner", task.ID, &explicit, time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, got.Completed)
	}

	_, err = repo.Toggle(ctx, "intruder", task.ID, nil, time.Now().UTC())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskRepository_ConcurrentToggle(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()
	task := newTask("owner", "race", "", false, time.Now().UTC())
	seedTasks(t, repo, task)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := repo.Toggle(ctx, "owner", task.ID, nil, time.Now().UTC())
			if assert.NoError(t, err) {
				results[i] = got.Completed
			}
		}(i)
	}
	wg.Wait()

	// Serial execution from false yields one true and one false.
	assert.ElementsMatch(t, []bool{true, false}, results)

	got, err := repo.Get(ctx, "owner", task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestTaskRepository_Delete(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()
	task := newTask("owner", "bye", "", false, time.Now().UTC())
	seedTasks(t, repo, task)

	assert.ErrorIs(t, repo.Delete(ctx, "intruder", task.ID), storage.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "owner", task.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "owner", task.ID), storage.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	user := &models.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Username:  "alice",
		Password:  "hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	dup := *user
	dup.ID = uuid.Must(uuid.NewV7()).String()
	assert.ErrorIs(t, repo.Create(ctx, &dup), storage.ErrAlreadyExists)
}

func TestRefreshSessionRepository_Rotate(t *testing.T) {
	repo := NewRefreshSessionRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	session := &models.RefreshSession{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       "owner",
		RefreshToken: "first",
		ExpiresAt:    now.Add(time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, session))

	rotated := *session
	rotated.RefreshToken = "second"
	require.NoError(t, repo.Rotate(ctx, "first", &rotated))

	_, err := repo.GetByToken(ctx, "first")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := repo.GetByToken(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	// A stale token cannot rotate the session again.
	stale := rotated
	stale.RefreshToken = "third"
	assert.ErrorIs(t, repo.Rotate(ctx, "first", &stale), storage.ErrNotFound)

	require.NoError(t, repo.DeleteByToken(ctx, "second"))
	_, err = repo.GetByToken(ctx, "second")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
