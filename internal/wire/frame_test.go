package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Events(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Event
	}{
		{"connection", `{"event":"connection","teamId":"t1"}`, Connection{TeamID: "t1"}},
		{"pong", `{"event":"pong"}`, Pong{}},
		{"start game", `{"event":"start_game","name":"Homecoming"}`, StartGame{Name: "Homecoming"}},
		{"end game", `{"event":"end_game","success":true}`, EndGame{}},
		{"add member", `{"event":"add_member","name":"Ann","email":"ann@example.com"}`, AddMember{Name: "Ann", Email: "ann@example.com"}},
		{"viewing", `{"event":"start_viewing","emails":["a@x.io","b@x.io"]}`, StartViewing{Emails: []string{"a@x.io", "b@x.io"}}},
		{"photo", `{"event":"photo","name":"Q1_S1_O_D1&10_20~15_G5_#0","photo":"AQID"}`, Photo{Name: "Q1_S1_O_D1&10_20~15_G5_#0", Photo: []byte{1, 2, 3}}},
		{"cache", `{"event":"photo_cache","cached":["a","b"]}`, PhotoCache{Cached: []string{"a", "b"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			assert.True(t, f.Success)
			assert.Equal(t, tc.want, f.Event)
		})
	}
}

func TestDecode_Failure(t *testing.T) {
	f, err := Decode([]byte(`{"event":"photo","success":false,"play":"Q1_S1_O_D1&10_20~15_G5_#0","error":"no game"}`))
	require.NoError(t, err)
	assert.False(t, f.Success)
	assert.Equal(t, "no game", f.Error)
	assert.Equal(t, Photo{Play: "Q1_S1_O_D1&10_20~15_G5_#0"}, f.Event)
}

func TestDecode_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{"event":`, ErrBadJSON},
		{"missing event", `{"success":true}`, ErrMissingEvent},
		{"unknown event", `{"event":"teleport"}`, ErrUnknownEvent},
		{"bad field type", `{"event":"start_viewing","emails":"a@x.io"}`, ErrBadJSON},
		{"bad base64", `{"event":"photo","photo":"!!"}`, ErrBadJSON},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEncode(t *testing.T) {
	b, err := Encode(Photo{Play: "Q1_S1_O_D1&10_20~15_G5_#0", Photo: []byte{1, 2, 3}})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, map[string]any{
		"event": "photo",
		"play":  "Q1_S1_O_D1&10_20~15_G5_#0",
		"photo": "AQID",
	}, got)
}

func TestEncode_EmptyEvent(t *testing.T) {
	b, err := Encode(Ping{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ping"}`, string(b))
}

func TestEncodeFailure(t *testing.T) {
	b, err := EncodeFailure(RenameTeam{}, "only the owner can rename the team")
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"rename_team","success":false,"error":"only the owner can rename the team"}`, string(b))

	f, err := Decode(b)
	require.NoError(t, err)
	assert.False(t, f.Success)
	assert.Equal(t, RenameTeam{}, f.Event)
}

func TestKind_MatchesWireName(t *testing.T) {
	events := []Event{
		Connection{TeamID: "t1"}, Ping{}, Pong{},
		StartGame{Name: "Homecoming"}, EndGame{},
		RenameTeam{Name: "JV"}, AddMember{Name: "Bob", Email: "bob@x.io"},
		RemoveMember{Email: "bob@x.io"}, SetCapturer{Email: "bob@x.io"},
		StartCapturing{}, StopCapturing{},
		StartViewing{Emails: []string{"bob@x.io"}}, StopViewing{Emails: []string{"bob@x.io"}},
		Photo{Name: "n", Photo: []byte("x")}, PhotoCache{Cached: []string{}},
	}
	for _, ev := range events {
		t.Run(string(ev.Kind()), func(t *testing.T) {
			b, err := Encode(ev)
			require.NoError(t, err)
			f, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, ev.Kind(), f.Event.Kind())
			assert.Equal(t, ev, f.Event)
		})
	}
}
