package core

import (
	"context"
	"sync"
)

// fakeSession records registrations and lets tests call handlers
// directly.
type fakeSession struct {
	sync.Mutex

	self     Principal
	commands map[string]map[CommandMode]CommandHandler
	specs    map[string]*Command
	events   map[string][]EventHandler
	tasks    map[string]ScheduledHandler
	schedule map[string]*Schedule
	targets  map[string]*fakeSurface
	synced   bool
	started  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		self:     Principal{Id: "bot", Name: "xmlcord"},
		commands: make(map[string]map[CommandMode]CommandHandler),
		specs:    make(map[string]*Command),
		events:   make(map[string][]EventHandler),
		tasks:    make(map[string]ScheduledHandler),
		schedule: make(map[string]*Schedule),
		targets:  make(map[string]*fakeSurface),
	}
}

func (s *fakeSession) Identity() Principal {
	return s.self
}

func (s *fakeSession) FetchTarget(ctx context.Context, id string) (Target, error) {
	s.Lock()
	defer s.Unlock()
	t, have := s.targets[id]
	if !have {
		return nil, nil
	}
	return t, nil
}

func (s *fakeSession) RegisterCommand(cmd *Command, mode CommandMode, h CommandHandler) error {
	s.Lock()
	defer s.Unlock()
	hs, have := s.commands[cmd.Name]
	if !have {
		hs = make(map[CommandMode]CommandHandler)
		s.commands[cmd.Name] = hs
	}
	hs[mode] = h
	s.specs[cmd.Name] = cmd
	return nil
}

func (s *fakeSession) RegisterEventHandler(kind string, h EventHandler) error {
	s.Lock()
	defer s.Unlock()
	s.events[kind] = append(s.events[kind], h)
	return nil
}

func (s *fakeSession) RegisterScheduledHandler(spec *Schedule, h ScheduledHandler) error {
	s.Lock()
	defer s.Unlock()
	s.tasks[spec.Name] = h
	s.schedule[spec.Name] = spec
	return nil
}

func (s *fakeSession) StartScheduled(ctx context.Context) error {
	s.started = true
	return nil
}

func (s *fakeSession) SyncRegisteredCommands(ctx context.Context) error {
	s.synced = true
	return nil
}

// fakeSurface records what's sent to it.
type fakeSurface struct {
	sync.Mutex
	sent    []*Outbound
	replies []*Outbound
}

func (s *fakeSurface) Send(ctx context.Context, out *Outbound) error {
	s.Lock()
	s.sent = append(s.sent, out)
	s.Unlock()
	return nil
}

func (s *fakeSurface) Reply(ctx context.Context, out *Outbound) error {
	s.Lock()
	s.replies = append(s.replies, out)
	s.Unlock()
	return nil
}

// fakeResponder records interaction responses.
type fakeResponder struct {
	responses []*Outbound
	deferred  []DeferOptions
	modals    []*ModalForm
}

func (r *fakeResponder) Respond(ctx context.Context, out *Outbound) error {
	r.responses = append(r.responses, out)
	return nil
}

func (r *fakeResponder) Defer(ctx context.Context, opts DeferOptions) error {
	r.deferred = append(r.deferred, opts)
	return nil
}

func (r *fakeResponder) OpenModal(ctx context.Context, form *ModalForm) error {
	r.modals = append(r.modals, form)
	return nil
}
