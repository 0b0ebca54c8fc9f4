package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/rpay/lib/msg"
)

func TestNew(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	k, err := New("localhost:9092,localhost:9093")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, k.brokers)
	require.NoError(t, k.Close())
}

func TestEncodeDecode(t *testing.T) {
	e := msg.Event{Type: msg.PaymentCompleted, ID: "p1", From: "alice", To: "bob", Amount: "2.5", Hash: "0x01",
		TS: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

	m, err := encode("sim", e)
	require.NoError(t, err)
	assert.Equal(t, "rpay.sim", m.Topic)
	assert.Equal(t, []byte("p1"), m.Key)
	assert.Equal(t, "x-event-type", m.Headers[0].Key)
	assert.Equal(t, msg.PaymentCompleted, string(m.Headers[0].Value))

	got, err := decode(m)
	require.NoError(t, err)
	assert.Equal(t, e.Hash, got.Hash)
	assert.True(t, e.TS.Equal(got.TS))

	_, err = decode(kafka.Message{Value: []byte("{"), Offset: 7})
	assert.ErrorContains(t, err, "offset 7")
}
