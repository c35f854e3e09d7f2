package engine

import (
	"context"
	"strings"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// CreateChannelInput is the caller-supplied content of a new channel.
type CreateChannelInput struct {
	Name        string
	Description *string
	ChannelType model.ChannelType
	CreatedBy   string
}

// CreateChannel registers a new named pub/sub channel (spec.md §3:
// "name" is unique). It does not itself create a bus topic: the bus
// creates topics lazily on first Subscribe.
func (e *Engine) CreateChannel(ctx context.Context, in CreateChannelInput) (model.Channel, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Channel{}, apperr.Validation("name", "must not be empty")
	}
	if in.Name == firehose {
		return model.Channel{}, apperr.Validation("name", "\""+firehose+"\" is reserved")
	}
	for _, existing := range e.store.Channels.IterSnapshot() {
		if existing.Name == in.Name {
			return model.Channel{}, apperr.Validation("name", "channel name already exists")
		}
	}
	ch := model.Channel{
		ID:          e.ids.Next(idalloc.KindChannel),
		Name:        in.Name,
		Description: in.Description,
		ChannelType: in.ChannelType,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   e.clock(),
	}
	e.store.Channels.Insert(ch.ID, ch)
	return ch, nil
}

// ListChannels returns every registered channel.
func (e *Engine) ListChannels() []model.Channel {
	return e.store.Channels.IterSnapshot()
}

// ShareMemory links an existing memory to a channel and publishes a
// channel_share event carrying the memory record (spec.md §4.7).
func (e *Engine) ShareMemory(ctx context.Context, channelID, memoryID uint64, sharedBy string) (model.ChannelMembership, error) {
	ch, ok := e.store.Channels.Get(channelID)
	if !ok {
		return model.ChannelMembership{}, apperr.NotFound("channel", channelID)
	}
	mem, ok := e.store.Memories.Get(memoryID)
	if !ok {
		return model.ChannelMembership{}, apperr.NotFound("memory", memoryID)
	}

	membership := model.ChannelMembership{
		ID:        e.ids.Next(idalloc.KindMembership),
		ChannelID: channelID,
		MemoryID:  memoryID,
		SharedBy:  sharedBy,
		SharedAt:  e.clock(),
	}
	e.store.Memberships.Insert(membership.ID, membership)
	e.publish(ctx, capability.EventChannelShare, ch.Name, mem)
	return membership, nil
}
