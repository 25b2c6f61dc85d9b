package service

import (
	"time"

	"go.uber.org/zap"
)

const (
	loadWarnAfter  = 8 * time.Second
	loadErrorAfter = 9 * time.Second
)

// watchLoad is a development-only diagnostic: it logs if a profile load is
// still running after 8s and again after 9s. It is not a correctness
// mechanism and never cancels the load. The returned func stops the watch.
func (s *Session) watchLoad(userID string) func() {
	if s.env != "development" {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		warn := time.NewTimer(loadWarnAfter)
		defer warn.Stop()
		select {
		case <-done:
			return
		case <-warn.C:
			s.log.Warn("sync: profile load slow", zap.String("user_id", userID), zap.Duration("after", loadWarnAfter))
		}

		hard := time.NewTimer(loadErrorAfter - loadWarnAfter)
		defer hard.Stop()
		select {
		case <-done:
		case <-hard.C:
			s.log.Error("sync: profile load stuck", zap.String("user_id", userID), zap.Duration("after", loadErrorAfter))
		}
	}()
	return func() { close(done) }
}
