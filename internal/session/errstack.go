package session

import (
	"slices"
	"time"
)

// pushError appends msg to the transient error stack. The oldest entry is
// removed ErrorTTL later through the loop.
func (s *Session) pushError(msg string) {
	s.errs = append(s.errs, msg)
	s.publishErrors()
	time.AfterFunc(s.cfg.ErrorTTL, func() {
		_ = s.post(s.ctx, expireError{})
	})
}

func (s *Session) popError() {
	if len(s.errs) == 0 {
		return
	}
	s.errs = slices.Delete(s.errs, 0, 1)
	s.publishErrors()
}

func (s *Session) publishErrors() {
	errs := slices.Clone(s.errs)
	if errs == nil {
		errs = []string{}
	}
	s.errSnap.Store(&errs)
	s.notify(UpdateErrors)
}
