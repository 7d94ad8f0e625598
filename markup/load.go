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

package markup

import (
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DocumentNotFound occurs when the named document doesn't exist.
type DocumentNotFound struct {
	Name string
}

func (e *DocumentNotFound) Error() string {
	return `document "` + e.Name + `" not found`
}

// DocumentUnreadable occurs when the document exists but can't be
// read.
type DocumentUnreadable struct {
	Name string
	Err  error
}

func (e *DocumentUnreadable) Error() string {
	return `can't read document "` + e.Name + `": ` + e.Err.Error()
}

func (e *DocumentUnreadable) Unwrap() error {
	return e.Err
}

// DocumentMalformed occurs when the document isn't well-formed XML.
type DocumentMalformed struct {
	Name string
	Err  error
}

func (e *DocumentMalformed) Error() string {
	return `malformed document "` + e.Name + `": ` + e.Err.Error()
}

func (e *DocumentMalformed) Unwrap() error {
	return e.Err
}

// DefaultExtension is added to a logical document name that has no
// extension.
var DefaultExtension = ".xml"

// Filename resolves a logical document name ("bot") to a filename
// ("bot.xml").
func Filename(name string) string {
	if filepath.Ext(name) == "" {
		return name + DefaultExtension
	}
	return name
}

// Load reads and parses the named document.
func Load(name string) (*Element, error) {
	filename := Filename(name)
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DocumentNotFound{Name: filename}
		}
		return nil, &DocumentUnreadable{Name: filename, Err: err}
	}
	defer f.Close()
	return parse(filename, f)
}

// Parse reads an XML document.
func Parse(r io.Reader) (*Element, error) {
	return parse("", r)
}

// ParseString is Parse for a string.
func ParseString(s string) (*Element, error) {
	return parse("", strings.NewReader(s))
}

func parse(name string, r io.Reader) (*Element, error) {
	d := xml.NewDecoder(r)

	var (
		root  *Element
		stack []*Element
		texts []*strings.Builder
	)

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			var syntax *xml.SyntaxError
			if errors.As(err, &syntax) {
				return nil, &DocumentMalformed{Name: name, Err: err}
			}
			return nil, &DocumentUnreadable{Name: name, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &Element{
				Tag: qualified(t.Name),
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				e.Attrs = append(e.Attrs, Attr{
					Name:  qualified(a.Name),
					Value: a.Value,
				})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &DocumentMalformed{Name: name, Err: errors.New("more than one root element")}
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, e)
			}
			stack = append(stack, e)
			texts = append(texts, &strings.Builder{})
		case xml.EndElement:
			n := len(stack) - 1
			stack[n].Text = strings.TrimSpace(texts[n].String())
			stack = stack[:n]
			texts = texts[:n]
		case xml.CharData:
			if 0 < len(texts) {
				texts[len(texts)-1].Write(t)
			}
		}
	}

	if root == nil {
		return nil, &DocumentMalformed{Name: name, Err: errors.New("no root element")}
	}
	if 0 < len(stack) {
		return nil, &DocumentMalformed{Name: name, Err: errors.New("unclosed element " + stack[len(stack)-1].Tag)}
	}
	return root, nil
}

// qualified renders a name without its namespace URI.
func qualified(n xml.Name) string {
	return n.Local
}
