package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
)

func roomChannel(formID int64) string {
	return fmt.Sprintf("collab:form:%d", formID)
}

// redisHub relays room events through Redis pub/sub so several server
// processes can share rooms. Each process subscribes once per room that has
// local members and delivers what it receives to its local hub.
type redisHub struct {
	local *hub
	rdb   *redis.Client

	mu   sync.Mutex
	subs map[int64]*redis.PubSub
}

func newRedisHub(rdb *redis.Client) *redisHub {
	return &redisHub{
		local: newHub(),
		rdb:   rdb,
		subs:  make(map[int64]*redis.PubSub),
	}
}

func (r *redisHub) join(ctx context.Context, formID int64, c *client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.local.subscribe(formID, c)
	if _, ok := r.subs[formID]; ok {
		return nil
	}
	ps := r.rdb.Subscribe(ctx, roomChannel(formID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		r.local.unsubscribe(formID, c)
		return fmt.Errorf("failed to subscribe to %s: %w", roomChannel(formID), err)
	}
	r.subs[formID] = ps
	go r.relay(formID, ps)
	glog.V(1).Infof("subscribed to %s", roomChannel(formID))
	return nil
}

func (r *redisHub) relay(formID int64, ps *redis.PubSub) {
	for msg := range ps.Channel() {
		r.local.deliver(formID, []byte(msg.Payload))
	}
}

func (r *redisHub) leave(formID int64, c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local.unsubscribe(formID, c) > 0 {
		return
	}
	if ps, ok := r.subs[formID]; ok {
		delete(r.subs, formID)
		if err := ps.Close(); err != nil {
			glog.Warningf("failed to close subscription %s: %v", roomChannel(formID), err)
		}
	}
}

func (r *redisHub) publish(ctx context.Context, formID int64, payload []byte) error {
	if err := r.rdb.Publish(ctx, roomChannel(formID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", roomChannel(formID), err)
	}
	return nil
}
