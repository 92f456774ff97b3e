package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncall/oncall/internal/calendar/application/commands"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	domain "github.com/oncall/oncall/internal/notification/domain"
)

var sinkNow = time.Unix(1_700_000_000, 0).UTC()

type memoryTypes struct {
	types map[domain.Action]*domain.Type
}

func (r *memoryTypes) FindByName(_ context.Context, name domain.Action) (*domain.Type, error) {
	return r.types[name], nil
}
func (r *memoryTypes) FindAll(_ context.Context) ([]*domain.Type, error) { return nil, nil }

type memorySettings struct{ settings []*domain.Setting }

func (r *memorySettings) Save(_ context.Context, s *domain.Setting) error {
	r.settings = append(r.settings, s)
	return nil
}
func (r *memorySettings) FindByID(_ context.Context, _ uuid.UUID) (*domain.Setting, error) {
	return nil, nil
}
func (r *memorySettings) FindByUser(_ context.Context, _ uuid.UUID) ([]*domain.Setting, error) {
	return nil, nil
}
func (r *memorySettings) FindForDispatch(_ context.Context, teamID uuid.UUID, typ domain.Action, roleIDs []uuid.UUID) ([]*domain.Setting, error) {
	roleSet := make(map[uuid.UUID]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		roleSet[id] = struct{}{}
	}
	var out []*domain.Setting
	for _, s := range r.settings {
		if s.TeamID != teamID || s.Type != typ {
			continue
		}
		for _, roleID := range s.RoleIDs {
			if _, ok := roleSet[roleID]; ok {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}
func (r *memorySettings) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type memoryQueue struct{ rows []*domain.QueueRow }

func (r *memoryQueue) Enqueue(_ context.Context, rows []*domain.QueueRow) error {
	r.rows = append(r.rows, rows...)
	return nil
}
func (r *memoryQueue) Due(_ context.Context, _ time.Time) ([]*domain.PendingMessage, error) {
	return nil, nil
}
func (r *memoryQueue) MarkSent(_ context.Context, _ uuid.UUID) error   { return nil }
func (r *memoryQueue) MarkFailed(_ context.Context, _ uuid.UUID) error { return nil }
func (r *memoryQueue) ExistsReminder(_ context.Context, _ uuid.UUID, _ domain.Action, _ time.Time) (bool, error) {
	return false, nil
}
func (r *memoryQueue) DeactivateReminders(_ context.Context, _ uuid.UUID, _ domain.Action, _ time.Time) error {
	return nil
}

type memoryAudit struct{ entries []*domain.AuditEntry }

func (r *memoryAudit) Append(_ context.Context, e *domain.AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}
func (r *memoryAudit) Search(_ context.Context, _ string, _ *domain.Action, _ int) ([]*domain.AuditEntry, error) {
	return nil, nil
}

func boolPtr(b bool) *bool                       { return &b }
func durationPtr(d time.Duration) *time.Duration { return &d }
func sinkClock() time.Time                       { return sinkNow }

func TestSinkRecord(t *testing.T) {
	teamID := uuid.New()
	roleID := uuid.New()
	subscriber := uuid.New()
	actor := uuid.New()

	newSinkFixture := func(types map[domain.Action]*domain.Type, settings ...*domain.Setting) (*Sink, *memoryQueue, *memoryAudit) {
		queue := &memoryQueue{}
		audit := &memoryAudit{}
		sink := NewSink(&memoryTypes{types: types}, &memorySettings{settings: settings}, queue, audit, nil, sinkClock)
		return sink, queue, audit
	}

	created := map[domain.Action]*domain.Type{
		domain.ActionEventCreated: {ID: uuid.New(), Name: domain.ActionEventCreated},
	}

	t.Run("uninvolved subscriber still gets non-involved notifications", func(t *testing.T) {
		sink, queue, audit := newSinkFixture(created, &domain.Setting{
			ID: uuid.New(), UserID: subscriber, TeamID: teamID,
			Mode: identityDomain.ContactModeEmail, Type: domain.ActionEventCreated,
			RoleIDs: []uuid.UUID{roleID}, OnlyIfInvolved: boolPtr(false),
		})

		err := sink.Record(context.Background(), commands.Notification{
			Action:        domain.ActionEventCreated,
			TeamID:        teamID,
			TeamName:      "t",
			Owner:         "someone_else",
			EventStart:    sinkNow.Add(time.Hour),
			AffectedUsers: []uuid.UUID{actor},
			AffectedRoles: []uuid.UUID{roleID},
			Context:       map[string]any{"team": "t"},
		})
		require.NoError(t, err)

		require.Len(t, audit.entries, 1)
		assert.Equal(t, domain.ActionEventCreated, audit.entries[0].ActionName)
		assert.Equal(t, "someone_else", audit.entries[0].OwnerName)

		require.Len(t, queue.rows, 1)
		row := queue.rows[0]
		assert.Equal(t, subscriber, row.UserID)
		assert.Equal(t, identityDomain.ContactModeEmail, row.Mode)
		assert.True(t, row.Active)
		assert.False(t, row.Sent)
		assert.Equal(t, sinkNow, row.SendTime)
	})

	t.Run("only-if-involved filters out bystanders", func(t *testing.T) {
		sink, queue, _ := newSinkFixture(created, &domain.Setting{
			ID: uuid.New(), UserID: subscriber, TeamID: teamID,
			Mode: identityDomain.ContactModeEmail, Type: domain.ActionEventCreated,
			RoleIDs: []uuid.UUID{roleID}, OnlyIfInvolved: boolPtr(true),
		})

		err := sink.Record(context.Background(), commands.Notification{
			Action:        domain.ActionEventCreated,
			TeamID:        teamID,
			TeamName:      "t",
			Owner:         "someone_else",
			AffectedUsers: []uuid.UUID{actor},
			AffectedRoles: []uuid.UUID{roleID},
		})
		require.NoError(t, err)
		assert.Empty(t, queue.rows)
	})

	t.Run("reminder send times land before the shift, never in the past", func(t *testing.T) {
		reminder := map[domain.Action]*domain.Type{
			domain.ActionOncallReminder: {ID: uuid.New(), Name: domain.ActionOncallReminder, IsReminder: true},
		}
		sink, queue, _ := newSinkFixture(reminder,
			&domain.Setting{
				ID: uuid.New(), UserID: subscriber, TeamID: teamID,
				Mode: identityDomain.ContactModeSMS, Type: domain.ActionOncallReminder,
				RoleIDs: []uuid.UUID{roleID}, TimeBefore: durationPtr(time.Hour),
			},
			&domain.Setting{
				ID: uuid.New(), UserID: actor, TeamID: teamID,
				Mode: identityDomain.ContactModeSMS, Type: domain.ActionOncallReminder,
				RoleIDs: []uuid.UUID{roleID}, TimeBefore: durationPtr(48 * time.Hour),
			})

		err := sink.Record(context.Background(), commands.Notification{
			Action:        domain.ActionOncallReminder,
			TeamID:        teamID,
			TeamName:      "t",
			Owner:         "scheduler",
			EventStart:    sinkNow.Add(24 * time.Hour),
			AffectedUsers: []uuid.UUID{subscriber, actor},
			AffectedRoles: []uuid.UUID{roleID},
		})
		require.NoError(t, err)

		// The 48h-before setting computes a send time already past and
		// is dropped; the 1h-before one survives.
		require.Len(t, queue.rows, 1)
		assert.Equal(t, subscriber, queue.rows[0].UserID)
		assert.Equal(t, sinkNow.Add(23*time.Hour), queue.rows[0].SendTime)
	})

	t.Run("unknown type audits without fan-out", func(t *testing.T) {
		sink, queue, audit := newSinkFixture(map[domain.Action]*domain.Type{})

		err := sink.Record(context.Background(), commands.Notification{
			Action:   domain.ActionTeamEdited,
			TeamID:   teamID,
			TeamName: "t",
			Owner:    "admin",
		})
		require.NoError(t, err)
		assert.Len(t, audit.entries, 1)
		assert.Empty(t, queue.rows)
	})
}

func TestRenderTemplate(t *testing.T) {
	out, err := renderTemplate("{{.team}} {{.role}} shift", `{"team":"ops","role":"primary"}`)
	require.NoError(t, err)
	assert.Equal(t, "ops primary shift", out)

	_, err = renderTemplate("{{.team", `{}`)
	assert.Error(t, err)
}
