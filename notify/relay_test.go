package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelope(t *testing.T) {
	msg, err := encodeEnvelope("5", []byte(`{"event":"orderStatusUpdate","data":null}`))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, "5", env.Room)
	assert.JSONEq(t, `{"event":"orderStatusUpdate","data":null}`, string(env.Data))

	_, err = encodeEnvelope("5", []byte(`{not json`))
	assert.Error(t, err)
}

func TestRelayDeliversLocallyWhenPublishFails(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	relay := NewRedisRelay(rdb, hub, "smartdine:test")

	guest := NewClient(4)
	kitchen := NewClient(4)
	hub.Register(guest)
	hub.Register(kitchen)
	hub.Join(guest, "5")

	relay.BroadcastToChannel("5", "orderStatusUpdate", map[string]string{"_id": "o1"})
	f := receive(t, guest)
	assert.Equal(t, "orderStatusUpdate", f.Event)
	assertSilent(t, kitchen)

	relay.BroadcastAll("newOrder", map[string]string{"_id": "o2"})
	assert.Equal(t, "newOrder", receive(t, guest).Event)
	assert.Equal(t, "newOrder", receive(t, kitchen).Event)
}
