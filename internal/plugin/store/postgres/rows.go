package postgres

import (
	"strings"
	"time"

	"github.com/nodenestor/hiveminddb/internal/model"
)

type memoryRow struct {
	ID         uint64 `gorm:"primaryKey"`
	Content    string
	Kind       string
	AgentID    *string
	UserID     *string
	SessionID  *string
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ValidFrom  time.Time
	ValidUntil *time.Time
	Source     string
	Tags       string
	Metadata   string
}

func (memoryRow) TableName() string { return "hiveminddb_memories" }

func memoryRowsFrom(in []model.Memory) []memoryRow {
	out := make([]memoryRow, len(in))
	for i, m := range in {
		out[i] = memoryRow{
			ID: m.ID, Content: m.Content, Kind: string(m.Kind), AgentID: m.AgentID, UserID: m.UserID,
			SessionID: m.SessionID, Confidence: m.Confidence, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
			ValidFrom: m.ValidFrom, ValidUntil: m.ValidUntil, Source: m.Source,
			Tags: strings.Join(m.Tags, ","), Metadata: m.Metadata,
		}
	}
	return out
}

func memoriesFrom(in []memoryRow) []model.Memory {
	out := make([]model.Memory, len(in))
	for i, r := range in {
		out[i] = model.Memory{
			ID: r.ID, Content: r.Content, Kind: model.MemoryKind(r.Kind), AgentID: r.AgentID, UserID: r.UserID,
			SessionID: r.SessionID, Confidence: r.Confidence, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
			ValidFrom: r.ValidFrom, ValidUntil: r.ValidUntil, Source: r.Source,
			Tags: splitTags(r.Tags), Metadata: r.Metadata,
		}
	}
	return out
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

type historyRow struct {
	ID         uint64 `gorm:"primaryKey"`
	MemoryID   uint64
	Operation  string
	OldContent *string
	NewContent *string
	Reason     string
	ChangedBy  string
	Timestamp  time.Time
}

func (historyRow) TableName() string { return "hiveminddb_history" }

func historyRowsFrom(in []model.MemoryHistory) []historyRow {
	out := make([]historyRow, len(in))
	for i, h := range in {
		out[i] = historyRow{
			ID: h.ID, MemoryID: h.MemoryID, Operation: string(h.Operation), OldContent: h.OldContent,
			NewContent: h.NewContent, Reason: h.Reason, ChangedBy: h.ChangedBy, Timestamp: h.Timestamp,
		}
	}
	return out
}

func historyFrom(in []historyRow) []model.MemoryHistory {
	out := make([]model.MemoryHistory, len(in))
	for i, r := range in {
		out[i] = model.MemoryHistory{
			ID: r.ID, MemoryID: r.MemoryID, Operation: model.HistoryOperation(r.Operation), OldContent: r.OldContent,
			NewContent: r.NewContent, Reason: r.Reason, ChangedBy: r.ChangedBy, Timestamp: r.Timestamp,
		}
	}
	return out
}

type entityRow struct {
	ID          uint64 `gorm:"primaryKey"`
	Name        string
	EntityType  string
	Description *string
	AgentID     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Metadata    string
}

func (entityRow) TableName() string { return "hiveminddb_entities" }

func entityRowsFrom(in []model.Entity) []entityRow {
	out := make([]entityRow, len(in))
	for i, e := range in {
		out[i] = entityRow{
			ID: e.ID, Name: e.Name, EntityType: e.EntityType, Description: e.Description, AgentID: e.AgentID,
			CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt, Metadata: e.Metadata,
		}
	}
	return out
}

func entitiesFrom(in []entityRow) []model.Entity {
	out := make([]model.Entity, len(in))
	for i, r := range in {
		out[i] = model.Entity{
			ID: r.ID, Name: r.Name, EntityType: r.EntityType, Description: r.Description, AgentID: r.AgentID,
			CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Metadata: r.Metadata,
		}
	}
	return out
}

type relationshipRow struct {
	ID             uint64 `gorm:"primaryKey"`
	SourceEntityID uint64
	TargetEntityID uint64
	RelationType   string
	Description    *string
	Weight         float64
	ValidFrom      time.Time
	ValidUntil     *time.Time
	CreatedBy      string
	Metadata       string
}

func (relationshipRow) TableName() string { return "hiveminddb_relationships" }

func relationshipRowsFrom(in []model.Relationship) []relationshipRow {
	out := make([]relationshipRow, len(in))
	for i, r := range in {
		out[i] = relationshipRow{
			ID: r.ID, SourceEntityID: r.SourceEntityID, TargetEntityID: r.TargetEntityID,
			RelationType: r.RelationType, Description: r.Description, Weight: r.Weight,
			ValidFrom: r.ValidFrom, ValidUntil: r.ValidUntil, CreatedBy: r.CreatedBy, Metadata: r.Metadata,
		}
	}
	return out
}

func relationshipsFrom(in []relationshipRow) []model.Relationship {
	out := make([]model.Relationship, len(in))
	for i, r := range in {
		out[i] = model.Relationship{
			ID: r.ID, SourceEntityID: r.SourceEntityID, TargetEntityID: r.TargetEntityID,
			RelationType: r.RelationType, Description: r.Description, Weight: r.Weight,
			ValidFrom: r.ValidFrom, ValidUntil: r.ValidUntil, CreatedBy: r.CreatedBy, Metadata: r.Metadata,
		}
	}
	return out
}

type channelRow struct {
	ID          uint64 `gorm:"primaryKey"`
	Name        string
	Description *string
	ChannelType string
	CreatedBy   string
	CreatedAt   time.Time
}

func (channelRow) TableName() string { return "hiveminddb_channels" }

func channelRowsFrom(in []model.Channel) []channelRow {
	out := make([]channelRow, len(in))
	for i, c := range in {
		out[i] = channelRow{
			ID: c.ID, Name: c.Name, Description: c.Description, ChannelType: string(c.ChannelType),
			CreatedBy: c.CreatedBy, CreatedAt: c.CreatedAt,
		}
	}
	return out
}

func channelsFrom(in []channelRow) []model.Channel {
	out := make([]model.Channel, len(in))
	for i, r := range in {
		out[i] = model.Channel{
			ID: r.ID, Name: r.Name, Description: r.Description, ChannelType: model.ChannelType(r.ChannelType),
			CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt,
		}
	}
	return out
}

type membershipRow struct {
	ID        uint64 `gorm:"primaryKey"`
	ChannelID uint64
	MemoryID  uint64
	SharedBy  string
	SharedAt  time.Time
}

func (membershipRow) TableName() string { return "hiveminddb_channel_memberships" }

func membershipRowsFrom(in []model.ChannelMembership) []membershipRow {
	out := make([]membershipRow, len(in))
	for i, m := range in {
		out[i] = membershipRow{ID: m.ID, ChannelID: m.ChannelID, MemoryID: m.MemoryID, SharedBy: m.SharedBy, SharedAt: m.SharedAt}
	}
	return out
}

func membershipsFrom(in []membershipRow) []model.ChannelMembership {
	out := make([]model.ChannelMembership, len(in))
	for i, r := range in {
		out[i] = model.ChannelMembership{ID: r.ID, ChannelID: r.ChannelID, MemoryID: r.MemoryID, SharedBy: r.SharedBy, SharedAt: r.SharedAt}
	}
	return out
}

type agentRow struct {
	AgentID      string `gorm:"primaryKey"`
	Name         string
	AgentType    string
	Capabilities string
	Status       string
	LastSeen     time.Time
	MemoryCount  int64
	Metadata     string
}

func (agentRow) TableName() string { return "hiveminddb_agents" }

func agentRowsFrom(in []model.Agent) []agentRow {
	out := make([]agentRow, len(in))
	for i, a := range in {
		out[i] = agentRow{
			AgentID: a.AgentID, Name: a.Name, AgentType: a.AgentType, Capabilities: strings.Join(a.Capabilities, ","),
			Status: string(a.Status), LastSeen: a.LastSeen, MemoryCount: a.MemoryCount, Metadata: a.Metadata,
		}
	}
	return out
}

func agentsFrom(in []agentRow) []model.Agent {
	out := make([]model.Agent, len(in))
	for i, r := range in {
		out[i] = model.Agent{
			AgentID: r.AgentID, Name: r.Name, AgentType: r.AgentType, Capabilities: splitTags(r.Capabilities),
			Status: model.AgentStatus(r.Status), LastSeen: r.LastSeen, MemoryCount: r.MemoryCount, Metadata: r.Metadata,
		}
	}
	return out
}

type taskRow struct {
	ID          uint64 `gorm:"primaryKey"`
	Title       string
	Description string
	State       string
	ClaimedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Result      string
}

func (taskRow) TableName() string { return "hiveminddb_tasks" }

func taskRowsFrom(in []model.Task) []taskRow {
	out := make([]taskRow, len(in))
	for i, t := range in {
		out[i] = taskRow{
			ID: t.ID, Title: t.Title, Description: t.Description, State: string(t.State), ClaimedBy: t.ClaimedBy,
			CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt, Result: t.Result,
		}
	}
	return out
}

func tasksFrom(in []taskRow) []model.Task {
	out := make([]model.Task, len(in))
	for i, r := range in {
		out[i] = model.Task{
			ID: r.ID, Title: r.Title, Description: r.Description, State: model.TaskState(r.State), ClaimedBy: r.ClaimedBy,
			CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Result: r.Result,
		}
	}
	return out
}
