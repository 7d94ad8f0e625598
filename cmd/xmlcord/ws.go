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
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/url"
	"sync"

	"github.com/xmlcord/xmlcord/sio"

	"github.com/gorilla/websocket"
)

// WebSocketCouplings is an sio.Couplings for a WebSocket client.
//
// Each text message from the server is an in-bound message (JSON or
// plain message text).  Each
// Emitted is a text message to the server.
type WebSocketCouplings struct {
	URL string

	in   chan interface{}
	out  chan *sio.Result
	done chan bool
	conn *websocket.Conn
	wg   sync.WaitGroup
}

func NewWebSocketCouplings(args []string) (*WebSocketCouplings, *flag.FlagSet) {
	c := &WebSocketCouplings{}
	fs := flag.NewFlagSet("ws", flag.ExitOnError)
	fs.StringVar(&c.URL, "url", "ws://localhost:8080", "Target URL for WebSocket server")
	if args == nil {
		return nil, fs
	}
	fs.Parse(args)

	c.in = make(chan interface{})
	c.out = make(chan *sio.Result)
	c.done = make(chan bool)

	return c, fs
}

// Start creates the WebSocket session and starts processing it.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	slog.Info("wsconnect", "url", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, bs, err := conn.ReadMessage()
			if err != nil {
				E(err, "ReadMessage")
				return
			}
			if len(bs) == 0 {
				continue
			}
			slog.Debug("heard", "msg", string(bs))

			var msg interface{}
			if err = json.Unmarshal(bs, &msg); err != nil {
				msg = string(bs)
			}

			select {
			case <-ctx.Done():
				return
			case c.in <- msg:
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-c.out:
				for _, e := range r.Emitted {
					js, err := json.Marshal(e)
					if err != nil {
						E(err, "Marshal")
						continue
					}
					if err = conn.WriteMessage(websocket.TextMessage, js); err != nil {
						E(err, "WriteMessage")
						return
					}
				}
			}
		}
	}()

	return nil
}

// IO just returns the channels that NewWebSocketCouplings
// initialized.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan interface{}, chan *sio.Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop terminates the WebSocket connection.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	slog.Info("disconnecting")
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
