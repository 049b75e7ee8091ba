//go:build integration

package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gridgate/internal/engine/outbox"
	"gridgate/internal/permission"
	"gridgate/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	ctx       context.Context
	container *containers.PostgresContainer
	store     *outbox.PostgresStore
}

func TestPostgresOutboxSuite(t *testing.T) {
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.store = outbox.NewPostgresStore(s.container.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresOutboxSuite) TearDownSuite() {
	_ = s.container.DB.Close()
	_ = s.container.Container.Terminate(s.ctx)
}

func (s *PostgresOutboxSuite) SetupTest() {
	_, err := s.container.DB.ExecContext(s.ctx, `TRUNCATE permission_outbox RESTART IDENTITY`)
	s.Require().NoError(err)
}

func (s *PostgresOutboxSuite) append(ev permission.Event) outbox.Entry {
	payload, err := json.Marshal(ev)
	s.Require().NoError(err)
	entry, err := s.store.Append(s.ctx, outbox.Entry{
		PermissionID: ev.Permission(),
		EventKind:    ev.Kind(),
		Payload:      payload,
		CommittedAt:  time.Now().UTC(),
	})
	s.Require().NoError(err)
	return entry
}

func (s *PostgresOutboxSuite) TestAppendAssignsMonotonicSequence() {
	first := s.append(permission.Validated{PermissionID: "perm-1", Granularity: permission.GranularityHour})
	second := s.append(permission.Sent{PermissionID: "perm-1", ConversationID: "conv-1"})

	s.Less(first.Seq, second.Seq)
}

func (s *PostgresOutboxSuite) TestListByPermissionReplaysTypedEvents() {
	s.append(permission.Validated{PermissionID: "perm-1", Granularity: permission.GranularityHour})
	s.append(permission.Sent{PermissionID: "perm-1", ConversationID: "conv-1"})
	s.append(permission.Validated{PermissionID: "perm-other", Granularity: permission.GranularityDay})

	entries, err := s.store.ListByPermission(s.ctx, "perm-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	ev, err := entries[1].Event()
	s.Require().NoError(err)
	sent, ok := ev.(permission.Sent)
	s.Require().True(ok)
	s.Equal("conv-1", sent.ConversationID.String())
}
