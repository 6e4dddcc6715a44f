// Package cache provides a Redis-backed fast path for the conversation
// list. It is a cache only: the message store stays authoritative and
// the aggregator recomputes from it whenever the cache is cold.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhive/messaging-platform/internal/model"
)

const (
	indexKeyFmt = "conv:index:%s"   // ZSET peer id -> last message unix milli
	peerKeyFmt  = "conv:peer:%s:%s" // HASH last message fields + unread count
)

// Conversations maintains per-user conversation summaries in Redis.
type Conversations struct {
	client *redis.Client
}

// NewConversations creates a cache over the given client.
func NewConversations(client *redis.Client) *Conversations {
	return &Conversations{client: client}
}

func indexKey(userID string) string {
	return fmt.Sprintf(indexKeyFmt, userID)
}

func peerKey(userID, peerID string) string {
	return fmt.Sprintf(peerKeyFmt, userID, peerID)
}

// RecordMessage updates both participants' summaries for a new message.
// The receiver's unread count is incremented; the sender's is untouched.
func (c *Conversations) RecordMessage(ctx context.Context, msg *model.Message) error {
	at := msg.CreatedAt.UnixMilli()

	pipe := c.client.Pipeline()

	for _, side := range []struct {
		user, peer string
		unread     bool
	}{
		{msg.SenderID, msg.ReceiverID, false},
		{msg.ReceiverID, msg.SenderID, true},
	} {
		pipe.ZAdd(ctx, indexKey(side.user), redis.Z{Score: float64(at), Member: side.peer})

		key := peerKey(side.user, side.peer)
		pipe.HSet(ctx, key,
			"last_message", msg.Content,
			"last_msg_at", at,
		)
		if side.unread {
			pipe.HIncrBy(ctx, key, "unread_count", 1)
		} else {
			pipe.HSetNX(ctx, key, "unread_count", 0)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// MarkRead zeroes the unread count for userID's conversation with peerID.
func (c *Conversations) MarkRead(ctx context.Context, userID, peerID string) error {
	return c.client.HSet(ctx, peerKey(userID, peerID), "unread_count", 0).Err()
}

// Summaries returns the cached conversation list, newest first. The
// second return value is false when the user has no cached index, in
// which case the caller must recompute from the store.
func (c *Conversations) Summaries(ctx context.Context, userID string) ([]model.ConversationSummary, bool, error) {
	peers, err := c.client.ZRevRange(ctx, indexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(peers) == 0 {
		return nil, false, nil
	}

	out := make([]model.ConversationSummary, 0, len(peers))
	for _, peer := range peers {
		fields, err := c.client.HGetAll(ctx, peerKey(userID, peer)).Result()
		if err != nil {
			return nil, false, err
		}
		if len(fields) == 0 {
			continue
		}

		sum := model.ConversationSummary{
			PeerID:      peer,
			LastMessage: fields["last_message"],
		}
		if ms, err := strconv.ParseInt(fields["last_msg_at"], 10, 64); err == nil {
			sum.LastMessageAt = time.UnixMilli(ms)
		}
		if n, err := strconv.Atoi(fields["unread_count"]); err == nil {
			sum.UnreadCount = n
		}
		out = append(out, sum)
	}

	return out, true, nil
}

// Invalidate drops the cached index and per-peer entries for a user.
func (c *Conversations) Invalidate(ctx context.Context, userID string) error {
	peers, err := c.client.ZRange(ctx, indexKey(userID), 0, -1).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(peers)+1)
	keys = append(keys, indexKey(userID))
	for _, peer := range peers {
		keys = append(keys, peerKey(userID, peer))
	}
	return c.client.Del(ctx, keys...).Err()
}
