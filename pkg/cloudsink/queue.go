// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package cloudsink

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/killvxk/healer/pkg/prog"
)

// PubSubQueue implements store.Queue over a Pub/Sub topic/subscription
// pair (spec §5 domain stack #12), letting multiple healer-fuzz
// processes on different hosts share one candidate stream instead of
// each only seeing its own local ChanQueue.
type PubSubQueue struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription

	cancel context.CancelFunc
	msgs   chan *prog.Prog
}

// NewPubSubQueue opens client-side handles to an existing topic/
// subscription pair and starts a background receive loop that decodes
// each message into a *prog.Prog and buffers it for Pop.
func NewPubSubQueue(ctx context.Context, projectID, topicID, subID string) (*PubSubQueue, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cloudsink: pubsub client: %w", err)
	}
	recvCtx, cancel := context.WithCancel(ctx)
	q := &PubSubQueue{
		client: client,
		topic:  client.Topic(topicID),
		sub:    client.Subscription(subID),
		cancel: cancel,
		msgs:   make(chan *prog.Prog, 256),
	}
	go q.receiveLoop(recvCtx)
	return q, nil
}

func (q *PubSubQueue) receiveLoop(ctx context.Context) {
	q.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var p prog.Prog
		if err := json.Unmarshal(m.Data, &p); err != nil {
			m.Nack()
			return
		}
		select {
		case q.msgs <- &p:
			m.Ack()
		case <-ctx.Done():
			m.Nack()
		}
	})
}

// Push publishes p to the topic; every subscriber on the topic,
// including other hosts, will eventually see it via Pop.
func (q *PubSubQueue) Push(p *prog.Prog) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	q.topic.Publish(context.Background(), &pubsub.Message{Data: data})
}

func (q *PubSubQueue) Pop() (*prog.Prog, bool) {
	select {
	case p := <-q.msgs:
		return p, true
	default:
		return nil, false
	}
}

func (q *PubSubQueue) Len() int {
	return len(q.msgs)
}

func (q *PubSubQueue) Close() error {
	q.cancel()
	q.topic.Stop()
	return q.client.Close()
}
