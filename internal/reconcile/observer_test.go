package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"statuspage-sync/internal/bus"
	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/status"
)

type fakePublisher struct {
	subjects []string
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(subject string, payload any) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func TestObserveJournalsEveryWriteAndPublishesTargets(t *testing.T) {
	mem := journal.NewMemory(0)
	pub := &fakePublisher{}
	o := &Observer{Journal: mem, Bus: pub}
	ctx := context.Background()

	o.Observe(ctx, Write{Source: journal.SourcePoll, ComponentID: 9, ComponentName: "Echo", Status: status.Unknown, Staged: true})
	o.Observe(ctx, Write{Source: journal.SourcePoll, ComponentID: 9, ComponentName: "Echo", Status: status.MajorOutage})
	o.Observe(ctx, Write{Source: journal.SourcePoll, ComponentID: 9, ComponentName: "Echo", Status: status.Operational, Err: errors.New("502")})

	require.Len(t, mem.Entries(), 3)
	require.Equal(t, []string{bus.SubjectComponentUpdated}, pub.subjects)
	evt := pub.payloads[0].(bus.ComponentUpdated)
	require.Equal(t, 9, evt.ComponentID)
	require.Equal(t, "major_outage", evt.StatusName)
}

func TestObservePublishFailureIsNotFatal(t *testing.T) {
	o := &Observer{Bus: &fakePublisher{err: errors.New("nats: connection closed")}}
	o.Observe(context.Background(), Write{Source: journal.SourceWebhook, ComponentID: 1, Status: status.Operational})
}

func TestNilObserver(t *testing.T) {
	var o *Observer
	o.Observe(context.Background(), Write{Source: journal.SourceWebhook, Status: status.Operational})
}
