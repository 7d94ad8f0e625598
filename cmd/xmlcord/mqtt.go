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
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xmlcord/xmlcord/sio"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCouplings is an sio.Couplings for an MQTT client.
//
// In-bound messages arrive on the subscription topics.  Each Emitted
// is published to the out-bound topic (with "/CHANNEL" appended when
// ChannelTopics is set).
type MQTTCouplings struct {
	Client               mqtt.Client
	Quiesce              uint
	SubTopics            string
	ChannelFromTopic     bool
	DefaultOutboundTopic string
	ChannelTopics        bool

	InTimeout time.Duration

	incoming chan interface{}
	outbound chan *sio.Result
	done     chan bool
	cancel   context.CancelFunc
}

func NewMQTTCouplings(args []string) (*MQTTCouplings, *flag.FlagSet) {
	var (
		// Follow mosquitto_sub command line args.

		fs = flag.NewFlagSet("mq", flag.ExitOnError)

		broker      = fs.String("h", "tcp://localhost", "Broker hostname")
		clientId    = fs.String("i", "", "Client id")
		port        = fs.Int("p", 1883, "Broker port")
		keepAlive   = fs.Int("k", 10, "Keep-alive in seconds")
		userName    = fs.String("u", "", "Username")
		password    = fs.String("P", "", "Password")
		willTopic   = fs.String("will-topic", "", "Optional will topic")
		willPayload = fs.String("will-payload", "", "Optional will message")
		willQoS     = fs.Int("will-qos", 0, "Optional will QoS")
		willRetain  = fs.Bool("will-retain", false, "Optional will retention")
		reconnect   = fs.Bool("reconnect", false, "Automatically attempt to reconnect")
		clean       = fs.Bool("c", true, "Clean session")
		quiesce     = fs.Int("quiesce", 100, "Disconnection quiescence (in milliseconds)")

		certFilename = fs.String("cert", "", "Optional cert filename")
		keyFilename  = fs.String("key", "", "Optional key filename")
		insecure     = fs.Bool("insecure", false, "Skip broker cert checking")
		caFilename   = fs.String("cafile", "", "Optional CA cert filename")

		subTopics = fs.String("t", "xmlcord/in/#", "subscription topic(s)")

		channelFromTopic     = fs.Bool("channel-from-topic", true, "use the last topic segment as the channel of messages without one")
		defaultOutboundTopic = fs.String("def-outbound-topic", "xmlcord/out", "Default out-bound message topic")
		channelTopics        = fs.Bool("channel-topics", false, "append the channel to out-bound topics")
		inTimeout            = fs.Duration("in-timeout", time.Second, "timeout for in-bound queuing")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	opts := mqtt.NewClientOptions()

	*broker = fmt.Sprintf("%s:%d", *broker, *port)
	opts.AddBroker(*broker)
	opts.SetClientID(*clientId)
	opts.SetKeepAlive(time.Second * time.Duration(*keepAlive))

	opts.Username = *userName
	opts.Password = *password
	opts.AutoReconnect = *reconnect
	opts.CleanSession = *clean

	if *willTopic != "" {
		if *willPayload == "" {
			Fatal(fmt.Errorf("will topic without payload"))
		}
		opts.WillEnabled = true
		opts.WillTopic = *willTopic
		opts.WillPayload = []byte(*willPayload)
		opts.WillRetained = *willRetain
		opts.WillQos = byte(*willQoS)
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: *insecure,
	}

	if *caFilename != "" {
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		certs, err := os.ReadFile(filepath.Clean(*caFilename))
		if err != nil {
			Fatal(err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			slog.Warn("no certs appended, using system certs only")
		}
		tlsConf.RootCAs = rootCAs
	}

	if *keyFilename != "" {
		cert, err := tls.LoadX509KeyPair(*certFilename, *keyFilename)
		if err != nil {
			Fatal(err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	opts.SetTLSConfig(tlsConf)

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "error", err)
	}

	c := &MQTTCouplings{
		Quiesce:              uint(*quiesce),
		SubTopics:            *subTopics,
		ChannelFromTopic:     *channelFromTopic,
		DefaultOutboundTopic: *defaultOutboundTopic,
		ChannelTopics:        *channelTopics,
		InTimeout:            *inTimeout,

		incoming: make(chan interface{}),
		outbound: make(chan *sio.Result),
		done:     make(chan bool),
		cancel:   cancel,
	}

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.inHandler(ctx, msg.Topic(), msg.Payload())
	}

	c.Client = mqtt.NewClient(opts)

	return c, fs
}

// inHandler handles messages sent to us from the MQTT broker due to
// our subscriptions.
func (c *MQTTCouplings) inHandler(ctx context.Context, topic string, payload []byte) {
	slog.Debug("incoming", "topic", topic, "payload", string(payload))
	var x interface{}

	if err := json.Unmarshal(payload, &x); err != nil {
		x = string(payload)
	}
	if c.ChannelFromTopic {
		channel := topic[strings.LastIndex(topic, "/")+1:]
		switch vv := x.(type) {
		case map[string]interface{}:
			if _, have := vv["channel"]; !have {
				vv["channel"] = channel
			}
		case string:
			x = map[string]interface{}{
				"type":    sio.MsgMessage,
				"content": vv,
				"channel": channel,
			}
		}
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		slog.Warn("not forwarding due to ctx.Done()")
	case c.incoming <- x:
	case <-to.C:
		slog.Warn("not forwarding due to stall", "topic", topic)
	}
}

// Start creates the MQTT session and starts publishing results.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	slog.Info("connecting to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	slog.Info("connected to broker")

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(topic)
		if topic == "" {
			continue
		}
		slog.Info("subscribing", "topic", topic, "qos", qos)
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	return nil
}

// IO returns the channels that NewMQTTCouplings made.
func (c *MQTTCouplings) IO(ctx context.Context) (chan interface{}, chan *sio.Result, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// outTopic returns the topic for the Emitted.
func (c *MQTTCouplings) outTopic(e *sio.Emitted) (string, byte) {
	topic, qos := parseTopic(c.DefaultOutboundTopic)
	if c.ChannelTopics && e.Channel != "" {
		topic += "/" + e.Channel
	}
	return topic, qos
}

// outLoop publishes results to the MQTT broker.
func (c *MQTTCouplings) outLoop(ctx context.Context) error {
LOOP:
	for {
		select {
		case <-ctx.Done():
			break LOOP
		case r := <-c.outbound:
			for _, e := range r.Emitted {
				topic, qos := c.outTopic(e)
				js, err := json.Marshal(e)
				if err != nil {
					E(err, "Marshal")
					continue
				}
				token := c.Client.Publish(topic, qos, false, js)
				token.Wait()
				if err = token.Error(); err != nil {
					E(err, "Publish", topic)
				}
			}
		}
	}
	return nil
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(ctx context.Context) error {
	slog.Info("disconnecting")
	c.cancel()
	c.Client.Disconnect(c.Quiesce)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	var qos byte
	if _, err := fmt.Sscanf(s[i+1:], "%d", &qos); err != nil || 2 < qos {
		return s, 0
	}
	return s[:i], qos
}
