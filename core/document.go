/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"fmt"
	"strings"
)

// Section names.
const (
	SectionConfig    = "config"
	SectionCommands  = "commands"
	SectionEvents    = "events"
	SectionTasks     = "tasks"
	SectionVariables = "variables"
	SectionViews     = "views"
	SectionModals    = "modals"
)

// Document is a resolved markup document: the normalized sections
// plus the settings derived from the config section.
//
// See config.Resolve.
type Document struct {
	Config    *Map
	Commands  *Map
	Events    *Map
	Tasks     *Map
	Variables *Map
	Views     *Map
	Modals    *Map

	Tags     Tags
	Settings Settings
}

// NewDocument makes a Document with empty sections and default
// Settings.
func NewDocument() *Document {
	return &Document{
		Config:    NewMap(),
		Commands:  NewMap(),
		Events:    NewMap(),
		Tasks:     NewMap(),
		Variables: NewMap(),
		Views:     NewMap(),
		Modals:    NewMap(),
		Tags:      Tags{},
		Settings:  DefaultSettings(),
	}
}

// Section returns the named section.
func (d *Document) Section(name string) (*Map, bool) {
	switch name {
	case SectionConfig:
		return d.Config, true
	case SectionCommands:
		return d.Commands, true
	case SectionEvents:
		return d.Events, true
	case SectionTasks:
		return d.Tasks, true
	case SectionVariables:
		return d.Variables, true
	case SectionViews:
		return d.Views, true
	case SectionModals:
		return d.Modals, true
	}
	return nil, false
}

// Settings are the engine-wide switches derived from Tags.
type Settings struct {
	// Prefix introduces a positional (text) command.
	Prefix string

	// CaseInsensitive makes command names match regardless of
	// case.
	CaseInsensitive bool

	// StripAfterPrefix allows whitespace between the prefix and
	// the command name.
	StripAfterPrefix bool

	// IgnoreSelf makes the self-authored message event ignore
	// messages that the session itself sent.
	IgnoreSelf bool

	// SyncCommands asks the Session to publish structured
	// commands after registration.
	SyncCommands bool
}

// DefaultSettings returns the Settings used when no tags say
// otherwise.
func DefaultSettings() Settings {
	return Settings{
		Prefix:       "!",
		SyncCommands: true,
	}
}

// Tags is the flat flag mapping derived from the config section's
// repeatable "tag" entries.
type Tags map[string]interface{}

// Bool reports the flag's value if it is a bool (or a string that
// looks like one).
func (ts Tags) Bool(k string) (bool, bool) {
	return asBool(ts[k])
}

// String returns the flag's value rendered as a string.
func (ts Tags) String(k string) (string, bool) {
	x, have := ts[k]
	if !have || x == nil {
		return "", false
	}
	switch vv := x.(type) {
	case string:
		return vv, true
	default:
		return fmt.Sprintf("%v", vv), true
	}
}

// Settings derives Settings from the flags.
func (ts Tags) Settings() Settings {
	s := DefaultSettings()
	if p, have := ts.String("prefix"); have && p != "" {
		s.Prefix = p
	}
	if b, have := ts.Bool("case_insensitive"); have {
		s.CaseInsensitive = b
	}
	if b, have := ts.Bool("strip_after_prefix"); have {
		s.StripAfterPrefix = b
	}
	if b, have := ts.Bool("ignore_self"); have {
		s.IgnoreSelf = b
	}
	if b, have := ts.Bool("sync_commands"); have {
		s.SyncCommands = b
	}
	return s
}

func asBool(x interface{}) (bool, bool) {
	switch vv := x.(type) {
	case bool:
		return vv, true
	case string:
		switch strings.ToLower(strings.TrimSpace(vv)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
