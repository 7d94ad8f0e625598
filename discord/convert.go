package discord

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/xmlcord/xmlcord/core"
)

// Permissions maps permission names (as used in declarations) to
// Discord permission bits.
var Permissions = map[string]int64{
	"administrator":        discordgo.PermissionAdministrator,
	"ban_members":          discordgo.PermissionBanMembers,
	"kick_members":         discordgo.PermissionKickMembers,
	"manage_messages":      discordgo.PermissionManageMessages,
	"manage_channels":      discordgo.PermissionManageChannels,
	"manage_guild":         discordgo.PermissionManageServer,
	"manage_roles":         discordgo.PermissionManageRoles,
	"manage_webhooks":      discordgo.PermissionManageWebhooks,
	"send_messages":        discordgo.PermissionSendMessages,
	"mention_everyone":     discordgo.PermissionMentionEveryone,
	"view_audit_log":       discordgo.PermissionViewAuditLogs,
	"add_reactions":        discordgo.PermissionAddReactions,
	"attach_files":         discordgo.PermissionAttachFiles,
	"embed_links":          discordgo.PermissionEmbedLinks,
	"read_message_history": discordgo.PermissionReadMessageHistory,
}

// PermissionNames converts a permission bit set.  An administrator
// has every permission.
func PermissionNames(bits int64) map[string]bool {
	acc := make(map[string]bool, len(Permissions))
	admin := bits&discordgo.PermissionAdministrator != 0
	for name, bit := range Permissions {
		if admin || bits&bit != 0 {
			acc[name] = true
		}
	}
	return acc
}

var buttonStyles = map[string]discordgo.ButtonStyle{
	core.StylePrimary:   discordgo.PrimaryButton,
	core.StyleSecondary: discordgo.SecondaryButton,
	core.StyleSuccess:   discordgo.SuccessButton,
	core.StyleDanger:    discordgo.DangerButton,
	core.StyleLink:      discordgo.LinkButton,
}

// maxButtonsPerRow is Discord's limit.
const maxButtonsPerRow = 5

// Components renders a ComponentView as action rows.
func Components(v *core.ComponentView) []discordgo.MessageComponent {
	if v == nil {
		return nil
	}
	var (
		rows []discordgo.MessageComponent
		row  []discordgo.MessageComponent
	)
	for _, b := range v.Buttons {
		button := discordgo.Button{
			Label:    b.Label,
			Style:    buttonStyles[b.Style],
			Disabled: b.Disabled,
		}
		if b.Style == core.StyleLink {
			button.URL = b.URL
		} else {
			button.CustomID = b.CustomId
		}
		if b.Emoji != "" {
			button.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}
		row = append(row, button)
		if len(row) == maxButtonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if 0 < len(row) {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}

	if m := v.Select; m != nil {
		opts := make([]discordgo.SelectMenuOption, 0, len(m.Options))
		for _, o := range m.Options {
			opt := discordgo.SelectMenuOption{
				Label:       o.Label,
				Value:       o.Value,
				Description: o.Description,
				Default:     o.Default,
			}
			if o.Emoji != "" {
				opt.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
			}
			opts = append(opts, opt)
		}
		min := m.MinValues
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    m.CustomId,
					Placeholder: m.Placeholder,
					MinValues:   &min,
					MaxValues:   m.MaxValues,
					Options:     opts,
				},
			},
		})
	}
	return rows
}

// Embed converts outbound embed parameters.
func Embed(m map[string]interface{}) (*discordgo.MessageEmbed, error) {
	if m == nil {
		return nil, nil
	}
	js, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var e discordgo.MessageEmbed
	if err = json.Unmarshal(js, &e); err != nil {
		return nil, fmt.Errorf("bad embed: %w", err)
	}
	return &e, nil
}

// MessageSend converts an Outbound.
func MessageSend(out *core.Outbound) (*discordgo.MessageSend, error) {
	send := &discordgo.MessageSend{
		Content:    out.Content(),
		Components: Components(out.View),
	}
	if tts, is := out.Params["tts"].(bool); is {
		send.TTS = tts
	}
	embed, err := Embed(out.Embed)
	if err != nil {
		return nil, err
	}
	if embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}
	return send, nil
}

// ResponseData converts an Outbound for an interaction response.
func ResponseData(out *core.Outbound) (*discordgo.InteractionResponseData, error) {
	send, err := MessageSend(out)
	if err != nil {
		return nil, err
	}
	data := &discordgo.InteractionResponseData{
		Content:    send.Content,
		Embeds:     send.Embeds,
		Components: send.Components,
		TTS:        send.TTS,
	}
	if out.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data, nil
}

// ModalData renders a ModalForm, one text input per row.
func ModalData(form *core.ModalForm) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(form.Inputs))
	for _, in := range form.Inputs {
		style := discordgo.TextInputShort
		if in.Style == core.InputParagraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    in.Name,
					Label:       in.Label,
					Style:       style,
					Placeholder: in.Placeholder,
					Value:       in.Value,
					Required:    in.Required,
					MinLength:   in.MinLength,
					MaxLength:   in.MaxLength,
				},
			},
		})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   form.CustomId,
		Title:      form.Title,
		Components: rows,
	}
}

// ModalInputs extracts submitted modal values by input name.
func ModalInputs(data discordgo.ModalSubmitInteractionData) map[string]string {
	acc := make(map[string]string)
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok || row == nil {
			continue
		}
		for _, x := range row.Components {
			if ti, ok := x.(*discordgo.TextInput); ok {
				acc[ti.CustomID] = ti.Value
			}
		}
	}
	return acc
}

// ApplicationCommand describes a structured command to Discord.
//
// Integer arguments are integer options.  Everything else is a string
// option.
func ApplicationCommand(cmd *core.Command) *discordgo.ApplicationCommand {
	desc := cmd.Description
	if desc == "" {
		desc = "No description"
	}
	ac := &discordgo.ApplicationCommand{
		Name:        strings.ToLower(cmd.Name),
		Description: desc,
	}
	for _, a := range cmd.Args {
		typ := discordgo.ApplicationCommandOptionString
		if a.Type == core.TypeInteger {
			typ = discordgo.ApplicationCommandOptionInteger
		}
		adesc := a.Description
		if adesc == "" {
			adesc = a.Name
		}
		ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
			Type:        typ,
			Name:        strings.ToLower(a.Name),
			Description: adesc,
			Required:    a.Required(),
		})
	}
	return ac
}

// DeclaredOptions maps option names as published by
// ApplicationCommand (lowercase) back to the declared argument names.
// Names that match no argument are kept.
func DeclaredOptions(cmd *core.Command, opts map[string]string) map[string]string {
	names := make(map[string]string, len(cmd.Args))
	for _, a := range cmd.Args {
		names[strings.ToLower(a.Name)] = a.Name
	}
	acc := make(map[string]string, len(opts))
	for k, v := range opts {
		if name, have := names[k]; have {
			k = name
		}
		acc[k] = v
	}
	return acc
}

// Options extracts structured command options as strings.
func Options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	acc := make(map[string]string, len(opts))
	for _, o := range opts {
		switch v := o.Value.(type) {
		case string:
			acc[o.Name] = v
		case float64:
			acc[o.Name] = fmt.Sprintf("%v", int64(v))
		default:
			acc[o.Name] = fmt.Sprintf("%v", v)
		}
	}
	return acc
}
