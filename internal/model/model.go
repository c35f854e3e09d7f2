// Package model defines the record types held by the Store: memories and
// their audit trail, the entity/relationship knowledge graph, channels and
// their memberships, agents, and tasks.
package model

import "time"

// MemoryKind classifies the nature of a memory.
type MemoryKind string

const (
	KindFact       MemoryKind = "fact"
	KindEpisodic   MemoryKind = "episodic"
	KindProcedural MemoryKind = "procedural"
	KindSemantic   MemoryKind = "semantic"
)

// Memory is an atom of knowledge with bi-temporal validity.
type Memory struct {
	ID         uint64     `json:"id"`
	Content    string     `json:"content"`
	Kind       MemoryKind `json:"kind"`
	AgentID    *string    `json:"agentId,omitempty"`
	UserID     *string    `json:"userId,omitempty"`
	SessionID  *string    `json:"sessionId,omitempty"`
	Confidence float64    `json:"confidence"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ValidFrom  time.Time  `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	Source     string     `json:"source,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Metadata   string     `json:"metadata,omitempty"`
}

// IsValid reports whether the memory is currently valid: no ValidUntil, or
// ValidUntil still in the future relative to now.
func (m Memory) IsValid(now time.Time) bool {
	return m.ValidUntil == nil || m.ValidUntil.After(now)
}

// HasTags reports whether m carries every tag in want (all-must-match).
func (m Memory) HasTags(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(m.Tags))
	for _, t := range m.Tags {
		have[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep-enough copy safe for copy-on-read handout: the Store
// never lets callers mutate a value it still owns.
func (m Memory) Clone() Memory {
	out := m
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.ValidUntil != nil {
		v := *m.ValidUntil
		out.ValidUntil = &v
	}
	return out
}

// HistoryOperation classifies an audit record.
type HistoryOperation string

const (
	OpAdd        HistoryOperation = "add"
	OpUpdate     HistoryOperation = "update"
	OpInvalidate HistoryOperation = "invalidate"
	OpMerge      HistoryOperation = "merge"
)

// MemoryHistory is an append-only audit record describing one mutation to a
// memory. Records for a given MemoryID are totally ordered by ID and by
// Timestamp.
type MemoryHistory struct {
	ID         uint64           `json:"id"`
	MemoryID   uint64           `json:"memoryId"`
	Operation  HistoryOperation `json:"operation"`
	OldContent *string          `json:"oldContent,omitempty"`
	NewContent *string          `json:"newContent,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	ChangedBy  string           `json:"changedBy,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

func (h MemoryHistory) Clone() MemoryHistory { return h }

// Entity is a node in the knowledge graph.
type Entity struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	EntityType  string    `json:"entityType"`
	Description *string   `json:"description,omitempty"`
	AgentID     *string   `json:"agentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Metadata    string    `json:"metadata,omitempty"`
}

func (e Entity) Clone() Entity { return e }

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	ID             uint64     `json:"id"`
	SourceEntityID uint64     `json:"sourceEntityId"`
	TargetEntityID uint64     `json:"targetEntityId"`
	RelationType   string     `json:"relationType"`
	Description    *string    `json:"description,omitempty"`
	Weight         float64    `json:"weight"`
	ValidFrom      time.Time  `json:"validFrom"`
	ValidUntil     *time.Time `json:"validUntil,omitempty"`
	CreatedBy      string     `json:"createdBy,omitempty"`
	Metadata       string     `json:"metadata,omitempty"`
}

func (r Relationship) Clone() Relationship {
	out := r
	if r.ValidUntil != nil {
		v := *r.ValidUntil
		out.ValidUntil = &v
	}
	return out
}

// ChannelType classifies a pub/sub channel.
type ChannelType string

const (
	ChannelPublic    ChannelType = "public"
	ChannelPrivate   ChannelType = "private"
	ChannelBroadcast ChannelType = "broadcast"
	ChannelAgent     ChannelType = "agent"
	ChannelUser      ChannelType = "user"
)

// Channel is a named pub/sub topic over memory events.
type Channel struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	ChannelType ChannelType `json:"channelType"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (c Channel) Clone() Channel { return c }

// ChannelMembership links a memory to a channel it was shared on.
type ChannelMembership struct {
	ID        uint64    `json:"id"`
	ChannelID uint64    `json:"channelId"`
	MemoryID  uint64    `json:"memoryId"`
	SharedBy  string    `json:"sharedBy,omitempty"`
	SharedAt  time.Time `json:"sharedAt"`
}

func (m ChannelMembership) Clone() ChannelMembership { return m }

// AgentStatus is the liveness state of a registered agent.
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
	AgentBusy    AgentStatus = "busy"
)

// Agent is a registered fleet member.
type Agent struct {
	AgentID      string      `json:"agentId"`
	Name         string      `json:"name"`
	AgentType    string      `json:"agentType"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Status       AgentStatus `json:"status"`
	LastSeen     time.Time   `json:"lastSeen"`
	MemoryCount  int64       `json:"memoryCount"`
	Metadata     string      `json:"metadata,omitempty"`
}

func (a Agent) Clone() Agent {
	out := a
	if a.Capabilities != nil {
		out.Capabilities = append([]string(nil), a.Capabilities...)
	}
	return out
}

// TaskState is the lifecycle state of a coordinated work item.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskClaimed   TaskState = "claimed"
	TaskInFlight  TaskState = "in_progress"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Task is a lightweight coordination record for fleet work handoff.
type Task struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	State       TaskState `json:"state"`
	ClaimedBy   *string   `json:"claimedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Result      string    `json:"result,omitempty"`
}

func (t Task) Clone() Task { return t }
