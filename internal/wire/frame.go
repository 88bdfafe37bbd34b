package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrBadJSON = errors.New("bad json")
var ErrMissingEvent = errors.New("missing event")
var ErrUnknownEvent = errors.New("unknown event")

// Frame is a decoded stream message.
type Frame struct {
	Event   Event
	Success bool
	Error   string
}

type envelope struct {
	Event   Name   `json:"event"`
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Decode parses one frame. Unknown event names return ErrUnknownEvent with
// the name in the message.
func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if env.Event == "" {
		return Frame{}, ErrMissingEvent
	}

	ev, err := newEvent(env.Event)
	if err != nil {
		return Frame{}, err
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return Frame{}, fmt.Errorf("%w: %s: %v", ErrBadJSON, env.Event, err)
	}

	f := Frame{Event: deref(ev), Success: true, Error: env.Error}
	if env.Success != nil {
		f.Success = *env.Success
	}
	return f, nil
}

// Encode renders a successful frame.
func Encode(ev Event) ([]byte, error) {
	return encode(ev, nil, "")
}

// EncodeFailure renders ev with success=false and the given error message.
func EncodeFailure(ev Event, msg string) ([]byte, error) {
	ok := false
	return encode(ev, &ok, msg)
}

func encode(ev Event, success *bool, msg string) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	env, err := json.Marshal(envelope{Event: ev.Kind(), Success: success, Error: msg})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func newEvent(name Name) (any, error) {
	switch name {
	case EvtConnection:
		return &Connection{}, nil
	case EvtPing:
		return &Ping{}, nil
	case EvtPong:
		return &Pong{}, nil
	case EvtStartGame:
		return &StartGame{}, nil
	case EvtEndGame:
		return &EndGame{}, nil
	case EvtRenameTeam:
		return &RenameTeam{}, nil
	case EvtAddMember:
		return &AddMember{}, nil
	case EvtRemoveMember:
		return &RemoveMember{}, nil
	case EvtSetCapturer:
		return &SetCapturer{}, nil
	case EvtStartCapturing:
		return &StartCapturing{}, nil
	case EvtStopCapturing:
		return &StopCapturing{}, nil
	case EvtStartViewing:
		return &StartViewing{}, nil
	case EvtStopViewing:
		return &StopViewing{}, nil
	case EvtPhoto:
		return &Photo{}, nil
	case EvtPhotoCache:
		return &PhotoCache{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func deref(ev any) Event {
	switch e := ev.(type) {
	case *Connection:
		return *e
	case *Ping:
		return *e
	case *Pong:
		return *e
	case *StartGame:
		return *e
	case *EndGame:
		return *e
	case *RenameTeam:
		return *e
	case *AddMember:
		return *e
	case *RemoveMember:
		return *e
	case *SetCapturer:
		return *e
	case *StartCapturing:
		return *e
	case *StopCapturing:
		return *e
	case *StartViewing:
		return *e
	case *StopViewing:
		return *e
	case *Photo:
		return *e
	case *PhotoCache:
		return *e
	default:
		return nil
	}
}
