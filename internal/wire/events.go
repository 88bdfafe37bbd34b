// Package wire defines the frames exchanged on the live team stream.
//
// Every frame is a JSON object with an "event" name, an optional "success"
// flag (true when absent) and, on failure, an "error" message. The remaining
// fields depend on the event:
//
//	start_game      {name}
//	end_game        {}
//	rename_team     {name}
//	add_member      {name, email}
//	remove_member   {email}
//	set_capturer    {email}
//	start_capturing {}
//	stop_capturing  {}
//	start_viewing   {emails}
//	stop_viewing    {emails}
//	photo           out: {play, photo}  in: {name, photo} or, on failure, {play, error}
//	photo_cache     {cached}
//	ping / pong     {}
//	connection      {teamId}
//
// Photos travel base64 encoded.
package wire

type Name string

const (
	EvtConnection     Name = "connection"
	EvtPing           Name = "ping"
	EvtPong           Name = "pong"
	EvtStartGame      Name = "start_game"
	EvtEndGame        Name = "end_game"
	EvtRenameTeam     Name = "rename_team"
	EvtAddMember      Name = "add_member"
	EvtRemoveMember   Name = "remove_member"
	EvtSetCapturer    Name = "set_capturer"
	EvtStartCapturing Name = "start_capturing"
	EvtStopCapturing  Name = "stop_capturing"
	EvtStartViewing   Name = "start_viewing"
	EvtStopViewing    Name = "stop_viewing"
	EvtPhoto          Name = "photo"
	EvtPhotoCache     Name = "photo_cache"
)

// Event is the closed set of stream events.
type Event interface {
	Kind() Name
	isEvent()
}

type Connection struct {
	TeamID string `json:"teamId,omitempty"`
}

type Ping struct{}

type Pong struct{}

type StartGame struct {
	Name string `json:"name,omitempty"`
}

type EndGame struct{}

type RenameTeam struct {
	Name string `json:"name,omitempty"`
}

type AddMember struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type RemoveMember struct {
	Email string `json:"email,omitempty"`
}

type SetCapturer struct {
	Email string `json:"email,omitempty"`
}

type StartCapturing struct{}

type StopCapturing struct{}

type StartViewing struct {
	Emails []string `json:"emails,omitempty"`
}

type StopViewing struct {
	Emails []string `json:"emails,omitempty"`
}

// Photo carries the encoded photo name in Play on the way up and in Name on the way down.
type Photo struct {
	Play  string `json:"play,omitempty"`
	Name  string `json:"name,omitempty"`
	Photo []byte `json:"photo,omitempty"`
}

type PhotoCache struct {
	Cached []string `json:"cached"`
}

func (Connection) Kind() Name     { return EvtConnection }
func (Ping) Kind() Name           { return EvtPing }
func (Pong) Kind() Name           { return EvtPong }
func (StartGame) Kind() Name      { return EvtStartGame }
func (EndGame) Kind() Name        { return EvtEndGame }
func (RenameTeam) Kind() Name     { return EvtRenameTeam }
func (AddMember) Kind() Name      { return EvtAddMember }
func (RemoveMember) Kind() Name   { return EvtRemoveMember }
func (SetCapturer) Kind() Name    { return EvtSetCapturer }
func (StartCapturing) Kind() Name { return EvtStartCapturing }
func (StopCapturing) Kind() Name  { return EvtStopCapturing }
func (StartViewing) Kind() Name   { return EvtStartViewing }
func (StopViewing) Kind() Name    { return EvtStopViewing }
func (Photo) Kind() Name          { return EvtPhoto }
func (PhotoCache) Kind() Name     { return EvtPhotoCache }

func (Connection) isEvent()     {}
func (Ping) isEvent()           {}
func (Pong) isEvent()           {}
func (StartGame) isEvent()      {}
func (EndGame) isEvent()        {}
func (RenameTeam) isEvent()     {}
func (AddMember) isEvent()      {}
func (RemoveMember) isEvent()   {}
func (SetCapturer) isEvent()    {}
func (StartCapturing) isEvent() {}
func (StopCapturing) isEvent()  {}
func (StartViewing) isEvent()   {}
func (StopViewing) isEvent()    {}
func (Photo) isEvent()          {}
func (PhotoCache) isEvent()     {}
