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

// Package main bridges a rule-driven bot to an MQTT broker.
//
//	bantermq -h tcp://localhost -p 1883 -t chat/in -o chat/out -rules basics.aiml
//
// Inbound payloads are JSON {"session":"...","input":"..."}; the
// response is published to the outbound topic with the same session.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Comcast/banter/bot"
	"github.com/Comcast/banter/loader"
	"github.com/Comcast/banter/script"
	"github.com/Comcast/banter/session"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Msg is the inbound and outbound payload shape.
type Msg struct {
	Session  string `json:"session"`
	Input    string `json:"input,omitempty"`
	Response string `json:"response,omitempty"`
}

type stringsFlag []string

func (ss *stringsFlag) String() string {
	return fmt.Sprintf("%v", []string(*ss))
}

func (ss *stringsFlag) Set(s string) error {
	*ss = append(*ss, s)
	return nil
}

// sessions hands out one session per id.
type sessions struct {
	sync.Mutex
	b   *bot.Bot
	acc map[string]*session.Session
}

func (ss *sessions) get(id string) *session.Session {
	ss.Lock()
	defer ss.Unlock()
	s, have := ss.acc[id]
	if !have {
		s = ss.b.NewSession(id)
		ss.acc[id] = s
	}
	return s
}

func main() {
	var (
		ruleFiles stringsFlag

		// Follow mosquitto_sub command line args.
		broker    = flag.String("h", "tcp://localhost", "broker hostname")
		port      = flag.Int("p", 1883, "broker port")
		clientId  = flag.String("i", "bantermq", "client id")
		keepAlive = flag.Int("k", 10, "keep-alive in seconds")
		userName  = flag.String("u", "", "username")
		password  = flag.String("P", "", "password")
		quiesce   = flag.Int("quiesce", 100, "disconnection quiescence (in milliseconds)")

		inTopic  = flag.String("t", "chat/in", "inbound topic")
		outTopic = flag.String("o", "chat/out", "outbound topic")
		qos      = flag.Int("qos", 0, "QoS for subscription and publication")

		seed = flag.Int64("seed", 0, "random seed (0 means time-based)")
	)
	flag.Var(&ruleFiles, "rules", "rule document filename (repeatable)")
	flag.Parse()

	ctx := context.Background()

	cfg := bot.DefaultConfig()
	cfg.Seed = *seed
	b := bot.New(cfg)
	b.SetScripter(script.New())

	if len(ruleFiles) == 0 {
		log.Fatal("no rule documents (use -rules)")
	}
	n, err := loader.LoadFiles(ruleFiles, b.Rules())
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d rules", n)

	ss := &sessions{b: b, acc: make(map[string]*session.Session)}

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error", 0)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s:%d", *broker, *port))
	opts.SetClientID(*clientId)
	opts.SetKeepAlive(time.Second * time.Duration(*keepAlive))
	opts.Username = *userName
	opts.Password = *password

	client := mqtt.NewClient(opts)
	if t := client.Connect(); t.Wait() && t.Error() != nil {
		log.Fatal(t.Error())
	}
	defer client.Disconnect(uint(*quiesce))

	handle := func(client mqtt.Client, m mqtt.Message) {
		var msg Msg
		if err := json.Unmarshal(m.Payload(), &msg); err != nil {
			log.Printf("can't parse payload on %s: %v", m.Topic(), err)
			return
		}
		if msg.Session == "" {
			msg.Session = "anonymous"
		}

		response := b.Respond(ctx, msg.Input, ss.get(msg.Session))

		out := Msg{Session: msg.Session, Response: response}
		js, err := json.Marshal(&out)
		if err != nil {
			log.Printf("marshal error %v on %#v", err, out)
			return
		}
		if t := client.Publish(*outTopic, byte(*qos), false, js); t.Wait() && t.Error() != nil {
			log.Printf("publish error: %v", t.Error())
		}
	}

	if t := client.Subscribe(*inTopic, byte(*qos), handle); t.Wait() && t.Error() != nil {
		log.Fatal(t.Error())
	}
	log.Printf("subscribed to %s, responding on %s", *inTopic, *outTopic)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Print("shutting down")
}
