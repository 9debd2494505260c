package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coverctl/cover"
)

func TestTopics(t *testing.T) {
	topics := NewTopics("barn")
	assert.Equal(t, "covers/barn/status", topics.Status())
	assert.Equal(t, "covers/barn/garage/state", topics.State("garage"))
	assert.Equal(t, "covers/barn/garage/position", topics.Position("garage"))
	assert.Equal(t, "covers/barn/garage/endstops", topics.Endstops("garage"))
	assert.Equal(t, []string{"covers/barn/+/set", "covers/barn/+/set_position", "covers/barn/+/endstops"}, topics.CommandFilters())
}

func TestParseCommand(t *testing.T) {
	topics := NewTopics("barn")

	tests := []struct {
		topic   string
		payload string
		want    Command
		wantErr error
	}{
		{topic: "covers/barn/garage/set", payload: "OPEN", want: Command{Cover: "garage", Request: cover.RequestOpen()}},
		{topic: "covers/barn/garage/set", payload: "close\n", want: Command{Cover: "garage", Request: cover.RequestClose()}},
		{topic: "covers/barn/garage/set", payload: "STOP", want: Command{Cover: "garage", Request: cover.RequestStop()}},
		{topic: "covers/barn/shutter/set", payload: "PROG", want: Command{Cover: "shutter", Request: cover.RequestProgram()}},
		{topic: "covers/barn/shutter/set_position", payload: "40", want: Command{Cover: "shutter", Request: cover.RequestPosition(0.4)}},
		{topic: "covers/barn/shutter/set_position", payload: "101", wantErr: cover.ErrInvalidPosition},
		{topic: "covers/other/shutter/set", payload: "OPEN", wantErr: ErrUnknownTopic},
		{topic: "covers/barn/shutter/state", payload: "{}", wantErr: ErrUnknownTopic},
		{topic: "covers/barn/shutter", payload: "OPEN", wantErr: ErrUnknownTopic},
	}
	for _, tt := range tests {
		t.Run(tt.topic+" "+tt.payload, func(t *testing.T) {
			got, err := topics.ParseCommand(tt.topic, []byte(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := topics.ParseCommand("covers/barn/garage/set", []byte("UP"))
	assert.Error(t, err)
	_, err = topics.ParseCommand("covers/barn/garage/set_position", []byte("half"))
	assert.Error(t, err)
}

func TestParseEndstops(t *testing.T) {
	topics := NewTopics("barn")

	got, err := topics.ParseEndstops("covers/barn/garage/endstops", []byte(`{"open":false,"closed":true}`))
	require.NoError(t, err)
	assert.Equal(t, EndstopReading{Cover: "garage", Closed: true}, got)

	got, err = topics.ParseEndstops("covers/barn/garage/endstops", []byte(`{"open":true}`))
	require.NoError(t, err)
	assert.Equal(t, EndstopReading{Cover: "garage", Open: true}, got)

	_, err = topics.ParseEndstops("covers/barn/garage/endstops", []byte("closed"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownTopic)

	_, err = topics.ParseEndstops("covers/barn/garage/set", []byte("OPEN"))
	assert.ErrorIs(t, err, ErrUnknownTopic)
	_, err = topics.ParseEndstops("covers/other/garage/endstops", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTopic)

	// readings are not commands
	_, err = topics.ParseCommand("covers/barn/garage/endstops", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeSender struct {
	messages []message
}

func (f *fakeSender) Publish(topic string, retained bool, payload []byte) {
	f.messages = append(f.messages, message{topic: topic, retained: retained, payload: string(payload)})
}

func TestBridge_Publish(t *testing.T) {
	s := &fakeSender{}
	b := NewBridge(s, NewTopics("barn"))

	b.Publish(cover.State{Name: "garage", Position: 0.574, Operation: cover.OperationOpening})

	require.Len(t, s.messages, 2)
	assert.Equal(t, "covers/barn/garage/state", s.messages[0].topic)
	assert.True(t, s.messages[0].retained)
	assert.JSONEq(t, `{"position":57,"operation":"opening","target":"none"}`, s.messages[0].payload)
	assert.Equal(t, message{topic: "covers/barn/garage/position", retained: true, payload: "57"}, s.messages[1])
}

func TestClient_Disabled(t *testing.T) {
	connected := false
	c, err := New(Config{}, "barn", Handlers{OnConnect: func() { connected = true }}, zap.NewNop().Sugar())
	require.NoError(t, err)

	assert.False(t, c.IsEnabled())
	require.NoError(t, c.Connect())
	assert.True(t, connected)
	assert.NoError(t, c.Subscribe("covers/#"))
	c.Publish("covers/barn/x/state", true, []byte("{}"))
	c.Disconnect()
	assert.Equal(t, "covers/barn/status", c.Topics().Status())
}
