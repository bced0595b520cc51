package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevingma/slack-clone-v6/internal/metrics"
	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

// Search finds messages containing query, ignoring case, in channels the
// caller can read. Results are newest first. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, userID int64, query string) ([]SearchResult, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	metrics.SearchQueries.Inc()

	msgs, err := s.store.SearchMessages(ctx, userID, query, s.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	views, err := s.buildViews(ctx, msgs)
	if err != nil {
		return nil, err
	}

	channels := make(map[int64]chat.Channel)
	results := make([]SearchResult, 0, len(views))
	for _, v := range views {
		ch, ok := channels[v.ChannelID]
		if !ok {
			ch, err = s.store.GetChannel(ctx, v.ChannelID)
			if err != nil {
				return nil, translate(err)
			}
			channels[v.ChannelID] = ch
		}
		results = append(results, SearchResult{MessageView: v, Channel: ch})
	}
	return results, nil
}
