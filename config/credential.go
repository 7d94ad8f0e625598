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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/jsccast/yaml"

	"github.com/xmlcord/xmlcord/core"
)

// Credential file kinds.
const (
	KindEnv  = "env"
	KindYAML = "yaml"
	KindJSON = "json"
)

// DefaultTokenVar is the environment variable that holds the token
// when the token tag names an environment file.
var DefaultTokenVar = "TOKEN"

// CredentialNotFound occurs when no rule in the credential chain
// produces a token.
type CredentialNotFound struct {
	Reason string
}

func (e *CredentialNotFound) Error() string {
	return "no credential found: " + e.Reason
}

// MissingOptionalDependency occurs when the token tag selects a file
// kind that no installed Loader handles.
type MissingOptionalDependency struct {
	Kind   string
	Module string
}

func (e *MissingOptionalDependency) Error() string {
	return `no loader for ` + e.Kind + ` credentials; install ` + e.Module
}

// Loader reads the token from a credential file.  key is the
// variable (env) or property (yaml, json) to read.
type Loader func(path, key string) (string, error)

// Modules names what provides each kind of Loader.
var Modules = map[string]string{
	KindEnv:  "github.com/joho/godotenv",
	KindYAML: "github.com/jsccast/yaml",
	KindJSON: "encoding/json",
}

// Credentials is the credential lookup chain.
type Credentials struct {
	// Loaders by kind.  A kind without a Loader is a
	// *MissingOptionalDependency.
	Loaders map[string]Loader
}

// NewCredentials makes Credentials with all the standard Loaders.
func NewCredentials() *Credentials {
	return &Credentials{
		Loaders: map[string]Loader{
			KindEnv:  LoadEnv,
			KindYAML: LoadYAML,
			KindJSON: LoadJSON,
		},
	}
}

// Kind classifies a credential location by its extension.
func Kind(location string) string {
	base := strings.ToLower(filepath.Base(location))
	switch {
	case base == ".env" || strings.HasSuffix(base, ".env"):
		return KindEnv
	case strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml"):
		return KindYAML
	case strings.HasSuffix(base, ".json"):
		return KindJSON
	}
	return ""
}

// Token finds the session credential.
//
// A literal "token" element in the config section wins.  Otherwise a
// "token" tag names a file: an environment file is loaded and then
// the variable named by the "token_var" tag (default TOKEN) is read
// from the environment; a YAML or JSON file is read for its "token"
// property.
func (c *Credentials) Token(doc *core.Document) (string, error) {
	if s, have := doc.Config.String("token"); have && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), nil
	}

	location, have := doc.Tags.String("token")
	if !have || location == "" {
		return "", &CredentialNotFound{Reason: "no token in config and no token tag"}
	}

	kind := Kind(location)
	if kind == "" {
		return "", &CredentialNotFound{Reason: `can't tell what kind of file "` + location + `" is`}
	}
	load, have := c.Loaders[kind]
	if !have || load == nil {
		return "", &MissingOptionalDependency{
			Kind:   kind,
			Module: Modules[kind],
		}
	}

	key := "token"
	if kind == KindEnv {
		key = DefaultTokenVar
		if v, have := doc.Tags.String("token_var"); have && v != "" {
			key = v
		}
	}

	token, err := load(location, key)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &CredentialNotFound{Reason: fmt.Sprintf(`%s has no %q`, location, key)}
	}
	return token, nil
}

// LoadEnv loads the environment file (without overriding variables
// that are already set) and reads the variable.
func LoadEnv(path, key string) (string, error) {
	if err := godotenv.Load(path); err != nil {
		return "", &CredentialNotFound{Reason: err.Error()}
	}
	return os.Getenv(key), nil
}

// LoadYAML reads a property from a YAML file.
func LoadYAML(path, key string) (string, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return "", &CredentialNotFound{Reason: err.Error()}
	}
	var m map[string]interface{}
	if err = yaml.Unmarshal(bs, &m); err != nil {
		return "", err
	}
	return property(m, key)
}

// LoadJSON reads a property from a JSON file.
func LoadJSON(path, key string) (string, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return "", &CredentialNotFound{Reason: err.Error()}
	}
	var m map[string]interface{}
	if err = json.Unmarshal(bs, &m); err != nil {
		return "", err
	}
	return property(m, key)
}

func property(m map[string]interface{}, key string) (string, error) {
	x, have := m[key]
	if !have {
		return "", nil
	}
	s, is := x.(string)
	if !is {
		return "", errors.New(`"` + key + `" isn't a string`)
	}
	return s, nil
}
