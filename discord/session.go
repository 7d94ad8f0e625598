// Package discord provides a core.Session for Discord.
//
// See https://github.com/bwmarrin/discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/sio"
	"github.com/xmlcord/xmlcord/timers"
)

// DefaultIntents are the gateway intents a Session asks for.
var DefaultIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Session is a core.Session backed by a Discord gateway connection.
type Session struct {
	Settings core.Settings

	// GuildId, if not empty, is the guild that
	// SyncRegisteredCommands publishes to.  Otherwise commands
	// are global.
	GuildId string

	Logger    *slog.Logger
	Scheduler *timers.Scheduler

	DG *discordgo.Session

	// respond sends an interaction response.  Defaults to
	// DG.InteractionRespond.
	respond func(i *discordgo.Interaction, r *discordgo.InteractionResponse) error

	mu           sync.Mutex
	ctx          context.Context
	positional   map[string]core.CommandHandler
	structured   map[string]core.CommandHandler
	specs        []*core.Command
	events       map[string][]core.EventHandler
	schedules    []*core.Schedule
	interactions map[string]core.InteractionHandler
}

// New makes a Session for the given bot token.  Call Open to
// connect.
func New(token string, settings core.Settings) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = DefaultIntents
	return &Session{
		Settings:     settings,
		Scheduler:    timers.NewScheduler(nil),
		DG:           dg,
		respond: func(i *discordgo.Interaction, r *discordgo.InteractionResponse) error {
			return dg.InteractionRespond(i, r)
		},
		ctx:          context.Background(),
		positional:   make(map[string]core.CommandHandler),
		structured:   make(map[string]core.CommandHandler),
		events:       make(map[string][]core.EventHandler),
		interactions: make(map[string]core.InteractionHandler),
	}, nil
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Open connects to the gateway.  Dispatch uses the given context.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.DG.AddHandler(s.onMessage)
	s.DG.AddHandler(s.onInteraction)
	s.DG.AddHandler(s.onMemberAdd)
	s.DG.AddHandler(s.onReactionAdd)
	s.DG.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		s.logger().Info("ready", "user", r.User.Username)
		s.dispatchEvent("ready", s.Identity(), "", nil, nil)
	})
	return s.DG.Open()
}

// Close disconnects.
func (s *Session) Close() error {
	return s.DG.Close()
}

func (s *Session) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Session) key(name string) string {
	if s.Settings.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Identity implements core.Session.
func (s *Session) Identity() core.Principal {
	if s.DG.State == nil || s.DG.State.User == nil {
		return core.Principal{}
	}
	u := s.DG.State.User
	return core.Principal{
		Id:   u.ID,
		Name: u.Username,
	}
}

// FetchTarget implements core.Session.
func (s *Session) FetchTarget(ctx context.Context, id string) (core.Target, error) {
	ch, err := s.DG.Channel(id)
	if err != nil {
		var re *discordgo.RESTError
		if errors.As(err, &re) && re.Response != nil {
			switch re.Response.StatusCode {
			case http.StatusNotFound, http.StatusBadRequest:
				return nil, nil
			}
		}
		return nil, err
	}
	return &channel{
		s:  s,
		id: ch.ID,
	}, nil
}

// RegisterCommand implements core.Session.
func (s *Session) RegisterCommand(cmd *core.Command, mode core.CommandMode, h core.CommandHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case core.Positional:
		s.positional[s.key(cmd.Name)] = h
	case core.Structured:
		// Discord only knows the published (lowercase) names.
		s.structured[strings.ToLower(cmd.Name)] = func(ctx context.Context, inv *core.Invocation) error {
			if inv.Options != nil {
				inv.Options = DeclaredOptions(cmd, inv.Options)
			}
			return h(ctx, inv)
		}
		s.specs = append(s.specs, cmd)
	default:
		return fmt.Errorf("unknown command mode '%s'", mode)
	}
	return nil
}

// RegisterEventHandler implements core.Session.
func (s *Session) RegisterEventHandler(kind string, h core.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sio.EventKey(kind)
	s.events[k] = append(s.events[k], h)
	return nil
}

// RegisterScheduledHandler implements core.Session.
func (s *Session) RegisterScheduledHandler(spec *core.Schedule, h core.ScheduledHandler) error {
	err := s.Scheduler.Add(&timers.Entry{
		Id:        spec.Name,
		Every:     spec.Interval,
		Cron:      spec.Cron,
		Immediate: spec.Cron == "",
		F:         h,
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.schedules = append(s.schedules, spec)
	s.mu.Unlock()
	return nil
}

// StartScheduled implements core.Session.
func (s *Session) StartScheduled(ctx context.Context) error {
	s.mu.Lock()
	schedules := append([]*core.Schedule(nil), s.schedules...)
	s.mu.Unlock()
	for _, spec := range schedules {
		if !spec.Enabled {
			continue
		}
		if err := s.Scheduler.Start(ctx, spec.Name); err != nil && err != timers.AlreadyRunning {
			return err
		}
	}
	return nil
}

// SyncRegisteredCommands implements core.Session.
func (s *Session) SyncRegisteredCommands(ctx context.Context) error {
	s.mu.Lock()
	acs := make([]*discordgo.ApplicationCommand, 0, len(s.specs))
	for _, cmd := range s.specs {
		acs = append(acs, ApplicationCommand(cmd))
	}
	s.mu.Unlock()

	self := s.Identity()
	if self.Id == "" {
		return errors.New("not connected")
	}
	_, err := s.DG.ApplicationCommandBulkOverwrite(self.Id, s.GuildId, acs)
	if err != nil {
		return err
	}
	s.logger().Info("synced commands", "count", len(acs), "guild", s.GuildId)
	return nil
}

func (s *Session) watch(v *core.ComponentView) {
	if v == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range v.Buttons {
		if b.OnClick != nil {
			s.interactions[b.CustomId] = b.OnClick
		}
	}
	if v.Select != nil && v.Select.OnSelect != nil {
		s.interactions[v.Select.CustomId] = v.Select.OnSelect
	}
}

func (s *Session) author(u *discordgo.User, channelId string, member *discordgo.Member) core.Principal {
	p := core.Principal{
		Id:   u.ID,
		Name: u.Username,
	}
	switch {
	case member != nil && member.Permissions != 0:
		p.Permissions = PermissionNames(member.Permissions)
	case channelId != "" && s.DG.State != nil:
		if bits, err := s.DG.State.UserChannelPermissions(u.ID, channelId); err == nil {
			p.Permissions = PermissionNames(bits)
		}
	}
	return p
}

func (s *Session) dispatchEvent(kind string, author core.Principal, channelId string, args []string, surface core.Surface) {
	s.mu.Lock()
	hs := append([]core.EventHandler(nil), s.events[sio.EventKey(kind)]...)
	s.mu.Unlock()

	ctx := s.context()
	for _, h := range hs {
		ev := &core.Event{
			Kind:    kind,
			Author:  author,
			Channel: channelId,
			Args:    args,
			Surface: surface,
		}
		if err := h(ctx, ev); err != nil {
			s.logger().Debug("event handler", "event", kind, "error", err)
		}
	}
}

func (s *Session) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	author := s.author(m.Author, m.ChannelID, m.Member)
	surface := &channel{
		s:       s,
		id:      m.ChannelID,
		replyTo: m.Reference(),
	}
	s.dispatchEvent(sio.MsgMessage, author, m.ChannelID, []string{m.Content}, surface)

	if author.Id == s.Identity().Id {
		return
	}
	name, args, ok := sio.ParseCommand(s.Settings, m.Content)
	if !ok {
		return
	}
	s.mu.Lock()
	h, have := s.positional[s.key(name)]
	s.mu.Unlock()
	if !have {
		return
	}
	err := h(s.context(), &core.Invocation{
		Principal: author,
		Mode:      core.Positional,
		Channel:   m.ChannelID,
		Args:      args,
		Surface:   surface,
	})
	if err != nil {
		s.logger().Debug("command", "command", name, "error", err)
	}
}

func (s *Session) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	author := core.Principal{
		Id:   m.User.ID,
		Name: m.User.Username,
	}
	s.dispatchEvent("member_join", author, "", []string{m.User.Username, m.User.ID}, nil)
}

func (s *Session) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	author := core.Principal{Id: r.UserID}
	surface := &channel{
		s:  s,
		id: r.ChannelID,
	}
	s.dispatchEvent("reaction_add", author, r.ChannelID, []string{r.Emoji.Name, r.MessageID}, surface)
}

func (s *Session) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil {
		return
	}
	u := i.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
	}
	if u == nil {
		return
	}
	author := s.author(u, i.ChannelID, i.Member)
	surface := &channel{
		s:  s,
		id: i.ChannelID,
	}
	resp := &responder{
		s: s,
		i: i.Interaction,
	}
	ctx := s.context()

	var err error
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		s.mu.Lock()
		h, have := s.structured[strings.ToLower(data.Name)]
		s.mu.Unlock()
		if !have {
			return
		}
		err = h(ctx, &core.Invocation{
			Principal: author,
			Mode:      core.Structured,
			Channel:   i.ChannelID,
			Options:   Options(data.Options),
			Surface:   surface,
			Responder: resp,
		})
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		s.mu.Lock()
		h, have := s.interactions[data.CustomID]
		s.mu.Unlock()
		if have {
			err = h(ctx, &core.Interaction{
				Principal: author,
				Channel:   i.ChannelID,
				CustomId:  data.CustomID,
				Values:    data.Values,
				Surface:   surface,
				Responder: resp,
			})
		}
		// An unacknowledged component shows as failed.
		if !resp.answered() {
			ack := &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredMessageUpdate,
			}
			if aerr := resp.send(ack); aerr != nil {
				s.logger().Warn("interaction ack", "custom_id", data.CustomID, "error", aerr)
			}
		}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		s.mu.Lock()
		h, have := s.interactions[data.CustomID]
		delete(s.interactions, data.CustomID)
		s.mu.Unlock()
		if !have {
			return
		}
		err = h(ctx, &core.Interaction{
			Principal: author,
			Channel:   i.ChannelID,
			CustomId:  data.CustomID,
			Inputs:    ModalInputs(data),
			Surface:   surface,
			Responder: resp,
		})
	}
	if err != nil {
		s.logger().Debug("interaction", "error", err)
	}
}

// channel is a core.Surface for a Discord channel.
type channel struct {
	s       *Session
	id      string
	replyTo *discordgo.MessageReference
}

func (c *channel) Send(ctx context.Context, out *core.Outbound) error {
	send, err := MessageSend(out)
	if err != nil {
		return err
	}
	c.s.watch(out.View)
	_, err = c.s.DG.ChannelMessageSendComplex(c.id, send)
	return err
}

func (c *channel) Reply(ctx context.Context, out *core.Outbound) error {
	send, err := MessageSend(out)
	if err != nil {
		return err
	}
	send.Reference = c.replyTo
	c.s.watch(out.View)
	_, err = c.s.DG.ChannelMessageSendComplex(c.id, send)
	return err
}

// responder is a core.Responder for a Discord interaction.
type responder struct {
	s *Session
	i *discordgo.Interaction

	mu   sync.Mutex
	done bool
}

func (r *responder) send(resp *discordgo.InteractionResponse) error {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
	return r.s.respond(r.i, resp)
}

func (r *responder) answered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *responder) Respond(ctx context.Context, out *core.Outbound) error {
	data, err := ResponseData(out)
	if err != nil {
		return err
	}
	r.s.watch(out.View)
	return r.send(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (r *responder) Defer(ctx context.Context, opts core.DeferOptions) error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if !opts.Thinking && r.i.Type == discordgo.InteractionMessageComponent {
		resp.Type = discordgo.InteractionResponseDeferredMessageUpdate
	}
	if opts.Ephemeral {
		resp.Data = &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		}
	}
	return r.send(resp)
}

func (r *responder) OpenModal(ctx context.Context, form *core.ModalForm) error {
	r.s.mu.Lock()
	r.s.interactions[form.CustomId] = form.OnSubmit
	r.s.mu.Unlock()
	return r.send(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: ModalData(form),
	})
}
