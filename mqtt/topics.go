// Package mqtt publishes cover states to an MQTT broker and receives remote commands.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coverctl/cover"
)

// Availability payloads of the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

var ErrUnknownTopic = errors.New("not a command topic")

// Topics builds topic names below covers/<client_id>.
type Topics struct {
	base string
}

// NewTopics returns the topic layout for a client.
func NewTopics(clientID string) Topics {
	return Topics{base: "covers/" + clientID}
}

// Status is the availability topic, also used as last will.
func (t Topics) Status() string { return t.base + "/status" }

// State is the retained JSON state topic of a cover.
func (t Topics) State(cover string) string { return t.base + "/" + cover + "/state" }

// Position is the retained percent position topic of a cover.
func (t Topics) Position(cover string) string { return t.base + "/" + cover + "/position" }

// Endstops is the topic on which another device reports the limit switches of a cover.
func (t Topics) Endstops(cover string) string { return t.base + "/" + cover + "/endstops" }

// CommandFilters are the subscriptions receiving commands and endstop readings for every cover.
func (t Topics) CommandFilters() []string {
	return []string{t.base + "/+/set", t.base + "/+/set_position", t.base + "/+/endstops"}
}

// split returns the cover and the action of a topic below the base.
func (t Topics) split(topic string) (name, action string, err error) {
	rest, ok := strings.CutPrefix(topic, t.base+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	name, action, ok = strings.Cut(rest, "/")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return name, action, nil
}

// Command is a request for a named cover received over MQTT.
type Command struct {
	Cover   string
	Request cover.Request
}

// ParseCommand decodes a message received on one of the command topics.
func (t Topics) ParseCommand(topic string, payload []byte) (Command, error) {
	name, action, err := t.split(topic)
	if err != nil {
		return Command{}, err
	}

	value := strings.TrimSpace(string(payload))
	switch action {
	case "set":
		switch strings.ToUpper(value) {
		case "OPEN":
			return Command{Cover: name, Request: cover.RequestOpen()}, nil
		case "CLOSE":
			return Command{Cover: name, Request: cover.RequestClose()}, nil
		case "STOP":
			return Command{Cover: name, Request: cover.RequestStop()}, nil
		case "PROG":
			return Command{Cover: name, Request: cover.RequestProgram()}, nil
		default:
			return Command{}, fmt.Errorf("unknown command %q for %s", value, name)
		}
	case "set_position":
		percent, err := strconv.Atoi(value)
		if err != nil {
			return Command{}, fmt.Errorf("position for %s: %w", name, err)
		}
		if percent < 0 || percent > 100 {
			return Command{}, fmt.Errorf("position for %s: %w", name, cover.ErrInvalidPosition)
		}
		return Command{Cover: name, Request: cover.RequestPosition(float64(percent) / 100)}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

// EndstopReading is the state of the limit switches of a cover, reported by another device as
// {"open":false,"closed":true}.
type EndstopReading struct {
	Cover  string `json:"-"`
	Open   bool   `json:"open"`
	Closed bool   `json:"closed"`
}

// ParseEndstops decodes a message received on an endstops topic. Any other topic fails with
// ErrUnknownTopic.
func (t Topics) ParseEndstops(topic string, payload []byte) (EndstopReading, error) {
	name, action, err := t.split(topic)
	if err != nil {
		return EndstopReading{}, err
	}
	if action != "endstops" {
		return EndstopReading{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	var reading EndstopReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return EndstopReading{}, fmt.Errorf("endstops for %s: %w", name, err)
	}
	reading.Cover = name
	return reading, nil
}

type statePayload struct {
	Position  int             `json:"position"`
	Operation cover.Operation `json:"operation"`
	Target    cover.Target    `json:"target"`
}

// EncodeState returns the payloads of the state and position topics.
func EncodeState(s cover.State) (state []byte, position []byte, err error) {
	state, err = json.Marshal(statePayload{Position: s.Percent(), Operation: s.Operation, Target: s.Target})
	if err != nil {
		return nil, nil, err
	}
	return state, []byte(strconv.Itoa(s.Percent())), nil
}

// Sender is the part of the client used by a Bridge.
type Sender interface {
	Publish(topic string, retained bool, payload []byte)
}

// Bridge publishes cover states as retained messages. It implements cover.Publisher.
type Bridge struct {
	sender Sender
	topics Topics
}

// NewBridge returns a publisher sending through s.
func NewBridge(s Sender, topics Topics) *Bridge {
	return &Bridge{sender: s, topics: topics}
}

// Publish implements cover.Publisher.
func (b *Bridge) Publish(s cover.State) {
	state, position, err := EncodeState(s)
	if err != nil {
		return
	}
	b.sender.Publish(b.topics.State(s.Name), true, state)
	b.sender.Publish(b.topics.Position(s.Name), true, position)
}
