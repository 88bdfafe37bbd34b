package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/api"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/session"
)

// connect opens the stream, retrying with exponential backoff until ctx ends
// or the server refuses for good.
func connect(ctx context.Context, s *session.Session, token string, log *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	op := func() error {
		err := s.Open(ctx, token)
		if err == nil || errors.Is(err, session.ErrAlreadyConnected) {
			return nil
		}
		if permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("connect failed, retrying", zap.Error(err), zap.Duration("in", wait))
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

func permanent(err error) bool {
	switch {
	case errors.Is(err, session.ErrProvisionalTeam),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, roster.ErrNoTeamSelected),
		errors.Is(err, context.Canceled):
		return true
	}
	if se, ok := api.AsServerError(err); ok {
		switch se.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
	}
	return false
}
