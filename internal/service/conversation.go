// Package service provides business logic over the stores.
package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/cache"
	"github.com/taskhive/messaging-platform/internal/directory"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/store"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

// ConversationService computes per-user conversation summaries. The
// Redis cache is a fast path; the message store is authoritative and
// serves any cold read.
type ConversationService struct {
	messages  store.MessageStore
	directory directory.Directory
	convCache *cache.Conversations // nil disables the fast path
	logger    *logger.Logger
}

// NewConversationService creates a conversation service.
func NewConversationService(
	messages store.MessageStore,
	dir directory.Directory,
	convCache *cache.Conversations,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		messages:  messages,
		directory: dir,
		convCache: convCache,
		logger:    log,
	}
}

// List returns the user's conversations, newest activity first.
func (s *ConversationService) List(ctx context.Context, userID string) (*model.ListConversationsResponse, error) {
	summaries, err := s.summaries(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		user, err := s.directory.FindUser(ctx, summaries[i].PeerID)
		if err != nil {
			// Display name resolution is best-effort; the id still
			// identifies the conversation.
			continue
		}
		summaries[i].PeerName = user.Name
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].LastMessageAt.Equal(summaries[j].LastMessageAt) {
			return summaries[i].PeerID < summaries[j].PeerID
		}
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})

	return &model.ListConversationsResponse{Conversations: summaries}, nil
}

func (s *ConversationService) summaries(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	if s.convCache != nil {
		cached, ok, err := s.convCache.Summaries(ctx, userID)
		if err != nil {
			s.logger.Warn("conversation cache read failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		} else if ok {
			return cached, nil
		}
	}
	return s.messages.ConversationSummaries(ctx, userID)
}

// Messages returns the full conversation between the user and a peer,
// ascending by creation time.
func (s *ConversationService) Messages(ctx context.Context, userID, peerID string) (*model.ListMessagesResponse, error) {
	msgs, err := s.messages.ConversationMessages(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	return &model.ListMessagesResponse{Messages: msgs}, nil
}
