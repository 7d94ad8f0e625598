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
package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// An input line that starts with '{' is a JSON Inbound.  Any other
// line is the content of a message.
type Stdio struct {
	// In is coupled to Hub input.
	In io.Reader

	// Out is coupled to Hub output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "emit", "error").
	Tags bool

	// PadTags adds some padding to tags used in output.
	PadTags bool

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	Logger *slog.Logger

	WG sync.WaitGroup
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until IO is complete or was terminated via its context.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

func (s *Stdio) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// IO returns channels for reading from stdin and writing to stdout.
func (s *Stdio) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	in := make(chan interface{})
	done := make(chan bool)

	var mu sync.Mutex
	printf := func(tag, format string, args ...interface{}) {
		if s.PadTags {
			tag = fmt.Sprintf("% 10s", tag)
		}
		if s.Tags {
			format = tag + " " + format
		}
		if s.Timestamps {
			ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
			format = ts + " " + format
		}
		mu.Lock()
		fmt.Fprintf(s.Out, format, args...)
		mu.Unlock()
	}

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		stdin := bufio.NewReader(s.In)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			line, err := stdin.ReadString('\n')
			if (err == io.EOF && line == "") || strings.TrimSpace(line) == "quit" {
				close(done)
				if s.InputEOF != nil {
					close(s.InputEOF)
				}
				return
			}
			if err != nil && err != io.EOF {
				s.logger().Error("stdin", "error", err)
				return
			}
			if s.EchoInput {
				printf("input", "%s", line)
			}
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "#") || len(line) == 0 {
				continue
			}
			if s.ShellExpand {
				if line, err = ShellExpand(line); err != nil {
					s.logger().Error("stdin", "error", err)
					continue
				}
			}

			var msg interface{} = line
			if strings.HasPrefix(line, "{") {
				if err := json.Unmarshal([]byte(line), &msg); err != nil {
					printf("error", "bad input: %s\n", err)
					continue
				}
			}

			select {
			case <-ctx.Done():
				return
			case in <- msg:
			}
		}
	}()

	out := make(chan *Result)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-out:
				if r == nil {
					return
				}
				for _, e := range r.Emitted {
					printf("emit", "%s\n", JS(e))
				}
				for _, msg := range r.Errors {
					printf("error", "%s\n", msg)
				}
			}
		}
	}()

	return in, out, done, nil
}
