package monitor

import (
	"context"
	"sort"
	"sync"
)

// Runner is anything with a cancellable Run, normally a *Loop.
type Runner interface {
	Run(ctx context.Context) error
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns the running sessions, at most one per name.
type Supervisor struct {
	mu       sync.Mutex
	sessions map[string]*session

	logger   Logger
	loggerMu sync.RWMutex
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{sessions: make(map[string]*session)}
}

// SetLogger sets the logger for session lifecycle messages.
func (s *Supervisor) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// Start runs r as the session called name. Any previous session with that
// name is cancelled and has returned before r begins.
//
// Start blocks while the previous session finishes its current step. A
// session stuck in a read that ignores its context blocks Start too.
func (s *Supervisor) Start(ctx context.Context, name string, r Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sessions[name]; ok {
		old.cancel()
		<-old.done
		delete(s.sessions, name)
	}

	sctx, cancel := context.WithCancel(ctx)
	sess := &session{cancel: cancel, done: make(chan struct{})}
	s.sessions[name] = sess

	go func() {
		defer close(sess.done)
		if err := r.Run(sctx); err != nil {
			s.log().Error("monitor session ended with error", "session", name, "error", err)
			return
		}
		s.log().Debug("monitor session ended", "session", name)
	}()
	s.log().Info("monitor session started", "session", name)
}

// Stop cancels the named session and waits for it to return. Unknown names
// are ignored.
func (s *Supervisor) Stop(name string) {
	s.mu.Lock()
	sess, ok := s.sessions[name]
	if ok {
		delete(s.sessions, name)
	}
	s.mu.Unlock()

	if ok {
		sess.cancel()
		<-sess.done
	}
}

// StopAll cancels every session and waits for all of them.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
	for _, sess := range sessions {
		<-sess.done
	}
}

// Running reports whether a session called name exists and has not returned.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-sess.done:
		return false
	default:
		return true
	}
}

// Names lists the registered sessions in sorted order.
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Supervisor) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	if s.logger == nil {
		return nopLogger{}
	}
	return s.logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
