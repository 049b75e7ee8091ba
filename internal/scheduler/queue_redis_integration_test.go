//go:build integration

package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gridgate/internal/connector"
	"gridgate/internal/scheduler"
	id "gridgate/pkg/domain"
	"gridgate/pkg/testutil/containers"
)

type RedisQueueSuite struct {
	suite.Suite
	ctx       context.Context
	container *containers.RedisContainer
	queue     *scheduler.RedisQueue
}

func TestRedisQueueSuite(t *testing.T) {
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewRedisContainer(s.T())
	s.queue = scheduler.NewRedisQueue(s.container.Client)
}

func (s *RedisQueueSuite) TearDownSuite() {
	_ = s.container.Client.Close()
	_ = s.container.Container.Terminate(s.ctx)
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(s.ctx))
}

func (s *RedisQueueSuite) entry(conversationID id.ConversationID, dueAt time.Time) scheduler.Entry {
	return scheduler.Entry{
		Region: id.RegionDK,
		Notification: connector.Notification{
			ConversationID: conversationID,
			Outcome:        connector.OutcomeAccepted,
		},
		Attempt: 1,
		DueAt:   dueAt,
	}
}

func (s *RedisQueueSuite) TestPopDueReturnsOnlyRipeEntries() {
	now := time.Now()
	s.Require().NoError(s.queue.Push(s.ctx, s.entry("conv-ripe", now.Add(-time.Second))))
	s.Require().NoError(s.queue.Push(s.ctx, s.entry("conv-early", now.Add(time.Minute))))

	due, err := s.queue.PopDue(s.ctx, now)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(id.ConversationID("conv-ripe"), due[0].Notification.ConversationID)
	s.Equal(1, due[0].Attempt)

	// The early entry surfaces once its time comes.
	due, err = s.queue.PopDue(s.ctx, now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(id.ConversationID("conv-early"), due[0].Notification.ConversationID)
}

func (s *RedisQueueSuite) TestPoppedEntriesAreGone() {
	now := time.Now()
	s.Require().NoError(s.queue.Push(s.ctx, s.entry("conv-1", now.Add(-time.Second))))

	due, err := s.queue.PopDue(s.ctx, now)
	s.Require().NoError(err)
	s.Len(due, 1)

	due, err = s.queue.PopDue(s.ctx, now)
	s.Require().NoError(err)
	s.Empty(due)
}

func (s *RedisQueueSuite) TestConcurrentConsumersNeverDoubleDeliver() {
	now := time.Now()
	const entries = 20
	for i := 0; i < entries; i++ {
		conv := id.ConversationID("conv-" + string(rune('a'+i)))
		s.Require().NoError(s.queue.Push(s.ctx, s.entry(conv, now.Add(-time.Second))))
	}

	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			due, err := s.queue.PopDue(s.ctx, now)
			s.NoError(err)
			mu.Lock()
			total += len(due)
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Equal(entries, total, "every entry is delivered to exactly one consumer")
}
