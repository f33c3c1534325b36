package activitymap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cinematiq/authd"
	"github.com/cinematiq/authd/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)
	event := authd.ActivityEvent{
		EventType:  authd.ActivityEventEmailVerified,
		Actor:      authd.ActorRef{ID: "user-100", Type: "user"},
		UserID:     "user-100",
		FromStatus: authd.AccountUnverified,
		ToStatus:   authd.AccountVerified,
		Metadata: map[string]any{
			"verification": "code",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "user-100", out.ActorID)
	assert.Equal(t, string(authd.ActivityEventEmailVerified), out.Verb)
	assert.Equal(t, "user", out.ObjectType)
	assert.Equal(t, "user-100", out.ObjectID)
	assert.Equal(t, "auth", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))

	assert.Equal(t, "code", out.Metadata["verification"])
	assert.Equal(t, "user", out.Metadata[activitymap.MetadataKeyActorType])
	assert.Equal(t, authd.AccountUnverified, out.Metadata[activitymap.MetadataKeyFromStatus])
	assert.Equal(t, authd.AccountVerified, out.Metadata[activitymap.MetadataKeyToStatus])

	// source metadata is cloned, not mutated
	assert.Len(t, event.Metadata, 1)
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := authd.ActivityEvent{
		EventType: authd.ActivityEventPasswordResetSuccess,
		Actor:     authd.ActorRef{Type: "user"},
		UserID:    "user-200",
		Metadata: map[string]any{
			"reset_token_id":                 "reset-1",
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e authd.ActivityEvent) string {
			if v, ok := e.Metadata["reset_token_id"].(string); ok {
				return v
			}
			return ""
		}),
	)

	assert.Equal(t, "security", out.Channel)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, "reset-1", out.ObjectID)
	assert.Equal(t, "existing", out.Metadata[activitymap.MetadataKeyActorType])
	assert.False(t, out.OccurredAt.IsZero())
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  authd.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  authd.ActivityEvent{Actor: authd.ActorRef{ID: "actor-1"}, UserID: "user-1"},
			expect: "actor-1",
		},
		{
			name:   "uses user id when actor id missing",
			event:  authd.ActivityEvent{UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  authd.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  authd.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			assert.Equal(t, tc.expect, out.ActorID)
		})
	}
}
