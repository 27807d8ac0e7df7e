package bus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishWithoutConnection(t *testing.T) {
	var p *Publisher
	require.True(t, errors.Is(p.Publish(SubjectComponentUpdated, ComponentUpdated{}), ErrNotConnected))
	require.True(t, errors.Is((&Publisher{}).Publish(SubjectComponentUpdated, nil), ErrNotConnected))
	p.Close()
}

func TestEncodeComponentUpdated(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data, err := encode(ComponentUpdated{
		ComponentID:   7,
		ComponentName: "Drift",
		Status:        4,
		StatusName:    "major_outage",
		Source:        "webhook",
		At:            at,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"component_id":7,"component_name":"Drift","status":4,"status_name":"major_outage","source":"webhook","at":"2024-05-01T12:00:00Z"}`, string(data))
}

func TestEncodePassesRawBytesThrough(t *testing.T) {
	data, err := encode(json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(data))

	_, err = encode(make(chan int))
	require.Error(t, err)
}

func TestNewPublisherUnreachable(t *testing.T) {
	_, err := NewPublisher("nats://127.0.0.1:1", nil)
	require.Error(t, err)
}
