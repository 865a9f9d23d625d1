package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-hmi/internal/audit"
	"github.com/nerrad567/gray-logic-hmi/internal/machine"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// Auditor records write attempts. *audit.SQLiteRepository implements it.
type Auditor interface {
	Create(ctx context.Context, e *audit.Entry) error
}

// Metrics observes writes. A nil Metrics is allowed.
type Metrics interface {
	ObserveWrite(kind string, err error)
}

// Logger is the optional logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Actor identifies who asked for a write.
type Actor struct {
	UserID string
	Source string // audit.SourceAPI or audit.SourceMQTT
}

// Service resolves control IDs and writes through a plc.Writer.
type Service struct {
	writer   plc.Writer
	controls map[string]machine.Control
	auditor  Auditor
	metrics  Metrics

	logger   Logger
	loggerMu sync.RWMutex
}

// NewService returns a service for controls. auditor may be nil.
func NewService(writer plc.Writer, controls map[string]machine.Control, auditor Auditor) *Service {
	c := make(map[string]machine.Control, len(controls))
	for id, ctl := range controls {
		c[id] = ctl
	}
	return &Service{writer: writer, controls: c, auditor: auditor}
}

// SetLogger sets the logger.
func (s *Service) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

// SetMetrics sets the write observer.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// Control returns the control with id.
func (s *Service) Control(id string) (machine.Control, error) {
	ctl, ok := s.controls[id]
	if !ok {
		return machine.Control{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return ctl, nil
}

// List returns every control sorted by ID.
func (s *Service) List() []machine.Control {
	out := make([]machine.Control, 0, len(s.controls))
	for _, ctl := range s.controls {
		out = append(out, ctl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsConnected reports whether writes can be attempted.
func (s *Service) IsConnected() bool {
	return s.writer.IsConnected()
}

// SetTrue writes true to a boolean control.
func (s *Service) SetTrue(ctx context.Context, id string, actor Actor) error {
	return s.setBool(ctx, id, true, actor)
}

// SetFalse writes false to a boolean control.
func (s *Service) SetFalse(ctx context.Context, id string, actor Actor) error {
	return s.setBool(ctx, id, false, actor)
}

func (s *Service) setBool(ctx context.Context, id string, v bool, actor Actor) error {
	ctl, err := s.Control(id)
	if err != nil {
		return err
	}
	if ctl.Mode != plc.ModeBool {
		return fmt.Errorf("%w: %s is %s", ErrNotBoolean, id, ctl.Mode)
	}
	return s.write(ctx, ctl, v, actor)
}

// SetValue converts raw to the control's mode and writes it.
func (s *Service) SetValue(ctx context.Context, id, raw string, actor Actor) error {
	ctl, err := s.Control(id)
	if err != nil {
		return err
	}
	v, err := plc.ParseValue(ctl.Mode, raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return s.write(ctx, ctl, v, actor)
}

func (s *Service) write(ctx context.Context, ctl machine.Control, v any, actor Actor) error {
	var err error
	if !s.writer.IsConnected() {
		err = ErrNotConnected
	} else if werr := s.writer.Write(ctx, ctl.Address, v); werr != nil {
		if errors.Is(werr, plc.ErrNotConnected) {
			err = fmt.Errorf("%w: %w", ErrNotConnected, werr)
		} else {
			err = fmt.Errorf("writing %s: %w", ctl.ID, werr)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveWrite(string(ctl.Kind), err)
	}
	s.audit(ctx, ctl, v, actor, err)

	if err != nil {
		s.logWarn("control: write failed", "control", ctl.ID, "error", err)
		return err
	}
	s.logInfo("control: write", "control", ctl.ID, "value", plc.FormatValue(v), "user", actor.UserID)
	return nil
}

func (s *Service) audit(ctx context.Context, ctl machine.Control, v any, actor Actor, writeErr error) {
	if s.auditor == nil {
		return
	}
	entry := &audit.Entry{
		Action:     audit.ActionWrite,
		EntityType: audit.EntityControl,
		EntityID:   ctl.ID,
		UserID:     actor.UserID,
		Source:     actor.Source,
		Details: map[string]any{
			"address": ctl.Address,
			"value":   plc.FormatValue(v),
		},
	}
	if writeErr != nil {
		entry.Action = audit.ActionWriteFailed
		entry.Details["error"] = writeErr.Error()
	}
	if err := s.auditor.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logWarn("control: audit failed", "control", ctl.ID, "error", err)
	}
}

func (s *Service) logInfo(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
