package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"task-weather-api/internal/database"
	"task-weather-api/internal/models"
	"task-weather-api/internal/repositories"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type RepositoryTestSuite struct {
	suite.Suite
	pool  *database.DatabasePool
	clock *fakeClock
	users *repositories.GormUserRepository
	tasks *repositories.GormTaskRepository
	calls *repositories.GormAPICallRepository
	ctx   context.Context

	alice *models.User
	bob   *models.User
}

func (s *RepositoryTestSuite) SetupTest() {
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	s.Require().NoError(err)
	s.Require().NoError(pool.Migrate())

	s.pool = pool
	s.ctx = context.Background()
	s.clock = &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s.users = repositories.NewUserRepository(pool.DB)
	s.tasks = repositories.NewTaskRepository(pool.DB, s.clock.Now)
	s.calls = repositories.NewAPICallRepository(pool.DB, s.clock.Now)

	s.alice = &models.User{Username: "alice", PasswordHash: "hash-a"}
	s.Require().NoError(s.users.Create(s.ctx, s.alice))
	s.bob = &models.User{Username: "bob", PasswordHash: "hash-b"}
	s.Require().NoError(s.users.Create(s.ctx, s.bob))
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.pool.Close()
}

func (s *RepositoryTestSuite) TestUserIDsAreAssignedSequentially() {
	s.Equal(uint(1), s.alice.ID)
	s.Equal(uint(2), s.bob.ID)
}

func (s *RepositoryTestSuite) TestDuplicateUsernameRejected() {
	err := s.users.Create(s.ctx, &models.User{Username: "alice", PasswordHash: "other"})
	s.ErrorIs(err, repositories.ErrDuplicateUsername)
}

func (s *RepositoryTestSuite) TestFindUser() {
	found, err := s.users.FindByUsername(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(s.bob.ID, found.ID)
	s.Equal("hash-b", found.PasswordHash)

	byID, err := s.users.FindByID(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	_, err = s.users.FindByUsername(s.ctx, "carol")
	s.ErrorIs(err, repositories.ErrUserNotFound)

	_, err = s.users.FindByID(s.ctx, 999)
	s.ErrorIs(err, repositories.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestCreateTaskDefaults() {
	task, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{
		TaskName:    "buy milk",
		Description: "2%",
	})
	s.Require().NoError(err)

	s.NotZero(task.ID)
	s.Equal("pending", task.Status)
	s.Equal(s.alice.ID, task.OwnerID)
	s.True(task.CreatedAt.Equal(s.clock.Now()))
	s.Nil(task.UpdatedAt)

	stored, err := s.tasks.Get(s.ctx, s.alice.ID, task.ID)
	s.Require().NoError(err)
	s.Nil(stored.UpdatedAt)
	s.Equal("2%", stored.Description)
}

func (s *RepositoryTestSuite) TestCreateTaskWithStatus() {
	task, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{
		TaskName: "file taxes",
		Status:   "in_progress",
	})
	s.Require().NoError(err)
	s.Equal("in_progress", task.Status)
}

func (s *RepositoryTestSuite) TestListIsScopedAndOrdered() {
	for _, name := range []string{"a1", "a2", "a3"} {
		_, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{TaskName: name})
		s.Require().NoError(err)
	}
	_, err := s.tasks.Create(s.ctx, s.bob.ID, repositories.TaskInput{TaskName: "b1"})
	s.Require().NoError(err)

	aliceTasks, err := s.tasks.List(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(aliceTasks, 3)
	for i, task := range aliceTasks {
		s.Equal(s.alice.ID, task.OwnerID)
		if i > 0 {
			s.Greater(task.ID, aliceTasks[i-1].ID)
		}
	}

	carolTasks, err := s.tasks.List(s.ctx, 999)
	s.Require().NoError(err)
	s.NotNil(carolTasks)
	s.Empty(carolTasks)
}

func (s *RepositoryTestSuite) TestOtherOwnerSeesNotFound() {
	task, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{TaskName: "private"})
	s.Require().NoError(err)

	_, err = s.tasks.Get(s.ctx, s.bob.ID, task.ID)
	s.ErrorIs(err, repositories.ErrTaskNotFound)

	done := "done"
	_, err = s.tasks.Update(s.ctx, s.bob.ID, task.ID, repositories.TaskPatch{Status: &done})
	s.ErrorIs(err, repositories.ErrTaskNotFound)

	deleted, err := s.tasks.Delete(s.ctx, s.bob.ID, task.ID)
	s.Require().NoError(err)
	s.False(deleted)

	stored, err := s.tasks.Get(s.ctx, s.alice.ID, task.ID)
	s.Require().NoError(err)
	s.Equal("pending", stored.Status)
	s.Nil(stored.UpdatedAt)
}

func (s *RepositoryTestSuite) TestMissingTaskIsNotFound() {
	_, err := s.tasks.Get(s.ctx, s.alice.ID, 4242)
	s.ErrorIs(err, repositories.ErrTaskNotFound)

	name := "x"
	_, err = s.tasks.Update(s.ctx, s.alice.ID, 4242, repositories.TaskPatch{TaskName: &name})
	s.ErrorIs(err, repositories.ErrTaskNotFound)
}

func (s *RepositoryTestSuite) TestPartialUpdate() {
	task, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{
		TaskName:    "buy milk",
		Description: "2%",
	})
	s.Require().NoError(err)

	s.clock.Advance(5 * time.Minute)
	done := "done"
	updated, err := s.tasks.Update(s.ctx, s.alice.ID, task.ID, repositories.TaskPatch{Status: &done})
	s.Require().NoError(err)

	s.Equal("done", updated.Status)
	s.Equal("buy milk", updated.TaskName)
	s.Equal("2%", updated.Description)
	s.True(updated.CreatedAt.Equal(task.CreatedAt))
	s.Require().NotNil(updated.UpdatedAt)
	s.True(updated.UpdatedAt.After(task.CreatedAt))

	first := *updated.UpdatedAt
	s.clock.Advance(time.Minute)
	desc := "whole"
	again, err := s.tasks.Update(s.ctx, s.alice.ID, task.ID, repositories.TaskPatch{Description: &desc})
	s.Require().NoError(err)
	s.Equal("done", again.Status)
	s.Equal("whole", again.Description)
	s.True(again.UpdatedAt.After(first))
}

func (s *RepositoryTestSuite) TestEmptyPatchStillTouchesUpdatedAt() {
	task, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{TaskName: "noop"})
	s.Require().NoError(err)

	s.clock.Advance(time.Second)
	updated, err := s.tasks.Update(s.ctx, s.alice.ID, task.ID, repositories.TaskPatch{})
	s.Require().NoError(err)
	s.Equal("noop", updated.TaskName)
	s.NotNil(updated.UpdatedAt)
}

func (s *RepositoryTestSuite) TestDeleteTwice() {
	task, err := s.tasks.Create(s.ctx, s.alice.ID, repositories.TaskInput{TaskName: "temp"})
	s.Require().NoError(err)

	deleted, err := s.tasks.Delete(s.ctx, s.alice.ID, task.ID)
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.tasks.Delete(s.ctx, s.alice.ID, task.ID)
	s.Require().NoError(err)
	s.False(deleted)

	_, err = s.tasks.Get(s.ctx, s.alice.ID, task.ID)
	s.ErrorIs(err, repositories.ErrTaskNotFound)
}

func (s *RepositoryTestSuite) TestAPICallsAppend() {
	count, err := s.calls.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	call := &models.APICall{
		IPAddress:    "203.0.113.7",
		Country:      "Cuba",
		City:         "Havana",
		WeatherState: "Clouds",
		Temperature:  29.5,
		Route:        "GET /protected-route",
	}
	s.Require().NoError(s.calls.Create(s.ctx, call))
	s.NotZero(call.ID)
	s.True(call.Timestamp.Equal(s.clock.Now()))

	count, err = s.calls.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
