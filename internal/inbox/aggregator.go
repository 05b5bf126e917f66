// Package inbox merges direct and group conversations into one
// recency-ordered view with unread counts.
package inbox

import (
	"context"
	"sort"
	"time"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// Aggregator builds inbox views from the message stores and the user
// directory. The directory is injected so the aggregator can be tested against
// a fake.
type Aggregator struct {
	directory     directory.Directory
	dms           repositories.DirectMessageRepository
	groups        repositories.GroupRepository
	groupMessages repositories.GroupMessageRepository
}

// NewAggregator constructs an Aggregator.
func NewAggregator(dir directory.Directory, dms repositories.DirectMessageRepository, groups repositories.GroupRepository, groupMessages repositories.GroupMessageRepository) *Aggregator {
	return &Aggregator{
		directory:     dir,
		dms:           dms,
		groups:        groups,
		groupMessages: groupMessages,
	}
}

// BuildInbox returns one summary per connected user and one per joined group,
// sorted most-recent-activity first. Connected users with no message history
// still appear, carrying the zero-time sort key so they land after every
// conversation with real activity.
func (a *Aggregator) BuildInbox(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	start := time.Now()

	peers, err := a.directory.ConnectionsOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	peerIDs := make([]int, 0, len(peers))
	for _, p := range peers {
		peerIDs = append(peerIDs, p.ID)
	}

	lastByPeer, err := a.dms.LastMessagesByPeer(ctx, userID, peerIDs)
	if err != nil {
		return nil, err
	}
	unreadByPeer, err := a.dms.UnreadCountsBySender(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(peers))
	for _, peer := range peers {
		summary := models.ConversationSummary{
			Kind:          models.ConversationDM,
			PeerID:        peer.ID,
			PeerUsername:  peer.Username,
			PeerAvatarURL: peer.AvatarURL,
			UnreadCount:   unreadByPeer[peer.ID],
		}
		if last, ok := lastByPeer[peer.ID]; ok {
			summary.LastMessage = &models.MessagePreview{
				ID:        last.ID,
				SenderID:  last.SenderID,
				Content:   last.Content,
				CreatedAt: last.CreatedAt,
			}
			summary.SortKey = last.CreatedAt
		}
		summaries = append(summaries, summary)
	}

	groups, err := a.groups.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	groupIDs := make([]int, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	lastByGroup, err := a.groupMessages.LastMessagesByGroup(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	unreadByGroup, err := a.groupMessages.UnreadCountsByGroup(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, group := range groups {
		summary := models.ConversationSummary{
			Kind:        models.ConversationGroup,
			GroupID:     group.ID,
			GroupName:   group.Name,
			UnreadCount: unreadByGroup[group.ID],
		}
		if last, ok := lastByGroup[group.ID]; ok {
			summary.LastMessage = &models.MessagePreview{
				ID:        last.ID,
				SenderID:  last.SenderID,
				Content:   last.Content,
				CreatedAt: last.CreatedAt,
			}
			summary.SortKey = last.CreatedAt
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SortKey.After(summaries[j].SortKey)
	})

	observability.ObserveInboxBuild(time.Since(start))
	return summaries, nil
}

// TotalUnread is the badge figure shown outside the messaging views: unread
// direct messages plus unread group messages.
func (a *Aggregator) TotalUnread(ctx context.Context, userID int) (int, error) {
	dm, err := a.dms.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	group, err := a.groupMessages.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return dm + group, nil
}
