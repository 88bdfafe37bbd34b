package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/api"
	"github.com/DoyleJ11/towerman/internal/hub"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/store"
)

const maxBody = 1 << 20

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unknown token")
	errForbidden    = errors.New("not allowed")
)

type Deps struct {
	Store  store.Store
	Hub    *hub.Hub
	Tokens *Tokens
	Logger *zap.Logger
}

type handlers struct {
	Deps
}

type signInRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

func (h handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		fail(w, http.StatusBadRequest, "missing token")
		return
	}
	if err := roster.ValidateEmail(req.Email); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.UpsertUser(r.Context(), store.User{Email: req.Email, Name: strings.TrimSpace(req.Name)}); err != nil {
		h.internal(w, "saving user", err)
		return
	}
	h.Tokens.Bind(req.Token, req.Email)
	ok(w, nil)
}

func (h handlers) teams(w http.ResponseWriter, r *http.Request) {
	email, found := h.Tokens.Email(r.URL.Query().Get("token"))
	if !found {
		fail(w, http.StatusUnauthorized, errUnauthorized.Error())
		return
	}
	teams, err := h.Store.TeamsFor(r.Context(), email)
	if err != nil {
		h.internal(w, "listing teams", err)
		return
	}
	out := make([]api.RemoteTeam, 0, len(teams))
	for _, t := range teams {
		out = append(out, h.remoteTeam(r.Context(), t))
	}
	ok(w, map[string]any{"teams": out})
}

type createTeamRequest struct {
	Token            string   `json:"token"`
	Name             string   `json:"name"`
	MemberEmails     []string `json:"memberEmails"`
	PersisterService string   `json:"persisterService"`
	PersisterToken   string   `json:"persisterToken"`
	Capturer         string   `json:"capturer"`
}

func (h handlers) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decode(w, r, &req) {
		return
	}
	owner, found := h.Tokens.Email(req.Token)
	if !found {
		fail(w, http.StatusUnauthorized, errUnauthorized.Error())
		return
	}
	if req.PersisterService != "" && req.PersisterService != api.PersisterGoogleDrive {
		fail(w, http.StatusBadRequest, "unsupported persister")
		return
	}
	if err := roster.CheckNewTeam(req.Name, req.MemberEmails); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	members := []string{owner}
	for _, e := range req.MemberEmails {
		if !slices.Contains(members, e) {
			members = append(members, e)
		}
	}
	if len(members) > roster.MaxMembers {
		fail(w, http.StatusBadRequest, roster.ErrTeamFull.Error())
		return
	}
	capturer := owner
	if req.Capturer != "" && slices.Contains(members, req.Capturer) {
		capturer = req.Capturer
	}

	t := store.Team{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(req.Name),
		Owner:    owner,
		Members:  members,
		Capturer: capturer,
	}
	if err := h.Store.CreateTeam(r.Context(), t); err != nil {
		h.internal(w, "creating team", err)
		return
	}
	h.Logger.Info("team created", zap.String("team", t.ID), zap.String("owner", owner))
	ok(w, map[string]string{"teamId": t.ID})
}

type deleteTeamRequest struct {
	Token  string `json:"token"`
	TeamID string `json:"teamId"`
}

func (h handlers) deleteTeam(w http.ResponseWriter, r *http.Request) {
	var req deleteTeamRequest
	if !decode(w, r, &req) {
		return
	}
	email, t, status, err := h.authorize(r.Context(), req.Token, req.TeamID)
	if err != nil {
		fail(w, status, err.Error())
		return
	}
	if t.Owner != email {
		fail(w, http.StatusForbidden, errForbidden.Error())
		return
	}
	if err := h.Store.DeleteTeam(r.Context(), t.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.internal(w, "deleting team", err)
		return
	}
	if err := h.Hub.Remove(r.Context(), t.ID); err != nil {
		h.Logger.Warn("stopping room", zap.String("team", t.ID), zap.Error(err))
	}
	h.Tokens.RevokeTeam(t.ID)
	h.Logger.Info("team deleted", zap.String("team", t.ID))
	ok(w, nil)
}

// auth issues a stream token for a member of the team.
func (h handlers) auth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email, t, status, err := h.authorize(r.Context(), q.Get("token"), q.Get("teamId"))
	if err != nil {
		fail(w, status, err.Error())
		return
	}
	ok(w, map[string]string{"token": h.Tokens.Issue(email, t.ID)})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// authorize resolves token and loads teamID, which the user must belong to.
func (h handlers) authorize(ctx context.Context, token, teamID string) (string, store.Team, int, error) {
	email, found := h.Tokens.Email(token)
	if !found {
		return "", store.Team{}, http.StatusUnauthorized, errUnauthorized
	}
	if teamID == "" {
		return "", store.Team{}, http.StatusBadRequest, errBadRequest
	}
	t, err := h.Store.Team(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return "", store.Team{}, http.StatusNotFound, err
	}
	if err != nil {
		h.Logger.Error("loading team", zap.String("team", teamID), zap.Error(err))
		return "", store.Team{}, http.StatusInternalServerError, errors.New("server error")
	}
	if !t.HasMember(email) {
		return "", store.Team{}, http.StatusForbidden, errForbidden
	}
	return email, t, 0, nil
}

func (h handlers) remoteTeam(ctx context.Context, t store.Team) api.RemoteTeam {
	member := func(email string) api.RemoteMember {
		m := api.RemoteMember{Email: email}
		if u, err := h.Store.User(ctx, email); err == nil {
			m.Name = u.Name
		}
		return m
	}
	rt := api.RemoteTeam{
		TeamID:   t.ID,
		Name:     t.Name,
		Owner:    member(t.Owner),
		Members:  make([]api.RemoteMember, 0, len(t.Members)),
		Capturer: t.Capturer,
	}
	for _, e := range t.Members {
		rt.Members = append(rt.Members, member(e))
	}
	return rt
}

func (h handlers) internal(w http.ResponseWriter, what string, err error) {
	h.Logger.Error(what, zap.Error(err))
	fail(w, http.StatusInternalServerError, "server error")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

// ok writes {success:true} merged with the fields of payload.
func ok(w http.ResponseWriter, payload any) {
	body := map[string]any{"success": true}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err == nil {
			var fields map[string]any
			if json.Unmarshal(b, &fields) == nil {
				for k, v := range fields {
					body[k] = v
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
