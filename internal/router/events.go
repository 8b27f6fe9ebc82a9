package router

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// DecodeError reports an inbound frame that failed boundary validation.
// It never reaches clients; the router logs and drops the frame.
type DecodeError struct {
	Event  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %q payload: %s", e.Event, e.Reason)
}

func decodeErr(event, reason string) error {
	return &DecodeError{Event: event, Reason: reason}
}

// decodeEvent turns a raw frame into one of the closed set of inbound
// event types, validating the payload shape per variant.
func decodeEvent(frame *Frame) (any, error) {
	switch frame.Event {
	case EventUserJoin:
		var ev UserJoinEvent
		if err := json.Unmarshal(frame.Payload, &ev); err != nil {
			return nil, decodeErr(frame.Event, err.Error())
		}
		if ev.Username == "" {
			return nil, decodeErr(frame.Event, "missing username")
		}
		return &ev, nil

	case EventJoinRoom, EventLeaveRoom, EventRequestMediaState:
		room, err := decodeRoomName(frame.Payload)
		if err != nil {
			return nil, decodeErr(frame.Event, err.Error())
		}
		return &RoomEvent{Room: room}, nil

	case EventMessage:
		var ev MessageEvent
		if err := json.Unmarshal(frame.Payload, &ev); err != nil {
			return nil, decodeErr(frame.Event, err.Error())
		}
		if ev.Sender == "" {
			return nil, decodeErr(frame.Event, "missing sender")
		}
		if ev.Content == "" && ev.FileURL == "" {
			return nil, decodeErr(frame.Event, "empty message")
		}
		return &ev, nil

	case EventTyping:
		var ev TypingEvent
		if err := json.Unmarshal(frame.Payload, &ev); err != nil {
			return nil, decodeErr(frame.Event, err.Error())
		}
		if ev.Room == "" {
			return nil, decodeErr(frame.Event, "missing room")
		}
		return &ev, nil

	case EventMediaAction:
		var ev MediaActionEvent
		if err := json.Unmarshal(frame.Payload, &ev); err != nil {
			return nil, decodeErr(frame.Event, err.Error())
		}
		if ev.Room == "" {
			return nil, decodeErr(frame.Event, "missing room")
		}
		switch ev.Type {
		case MediaActionURL, MediaActionPlay, MediaActionPause, MediaActionSeek:
		default:
			return nil, decodeErr(frame.Event, fmt.Sprintf("unknown media action type %q", ev.Type))
		}
		return &ev, nil

	case EventSendMediaState:
		var ev SendMediaStateEvent
		if err := json.Unmarshal(frame.Payload, &ev); err != nil {
			return nil, decodeErr(frame.Event, err.Error())
		}
		if ev.To == "" {
			return nil, decodeErr(frame.Event, "missing target connection id")
		}
		return &ev, nil

	default:
		return nil, decodeErr(frame.Event, "unknown event")
	}
}

// decodeRoomName accepts either a bare JSON string ("general") or an
// object carrying a room field ({"room":"general"}); clients have sent
// both shapes historically.
func decodeRoomName(payload json.RawMessage) (string, error) {
	res := gjson.ParseBytes(payload)
	switch res.Type {
	case gjson.String:
		if res.Str == "" {
			return "", fmt.Errorf("empty room name")
		}
		return res.Str, nil
	case gjson.JSON:
		if room := res.Get("room"); room.Type == gjson.String && room.Str != "" {
			return room.Str, nil
		}
	}
	return "", fmt.Errorf("expected a room name")
}
