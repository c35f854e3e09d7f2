package engine

import (
	"strings"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// RegisterAgentInput is the caller-supplied content of an agent
// registration or re-registration (idempotent by AgentID).
type RegisterAgentInput struct {
	AgentID      string
	Name         string
	AgentType    string
	Capabilities []string
	Metadata     string
}

// RegisterAgent creates or re-registers an agent record, setting its
// status to Online and LastSeen to now.
func (e *Engine) RegisterAgent(in RegisterAgentInput) (model.Agent, error) {
	if strings.TrimSpace(in.AgentID) == "" {
		return model.Agent{}, apperr.Validation("agentId", "must not be empty")
	}
	now := e.clock()
	existing, _ := e.store.Agents.Get(in.AgentID)
	agent := model.Agent{
		AgentID:      in.AgentID,
		Name:         in.Name,
		AgentType:    in.AgentType,
		Capabilities: append([]string(nil), in.Capabilities...),
		Status:       model.AgentOnline,
		LastSeen:     now,
		MemoryCount:  existing.MemoryCount,
		Metadata:     in.Metadata,
	}
	e.store.Agents.Insert(agent.AgentID, agent)
	return agent, nil
}

// ListAgents returns every registered agent.
func (e *Engine) ListAgents() []model.Agent {
	return e.store.Agents.IterSnapshot()
}

// Heartbeat updates an agent's LastSeen and status to Online.
func (e *Engine) Heartbeat(agentID string) (model.Agent, error) {
	if _, ok := e.store.Agents.Get(agentID); !ok {
		return model.Agent{}, apperr.NotFound("agent", agentID)
	}
	now := e.clock()
	e.store.Agents.UpdateInPlace(agentID, func(a model.Agent) model.Agent {
		a.Status = model.AgentOnline
		a.LastSeen = now
		return a
	})
	updated, _ := e.store.Agents.Get(agentID)
	return updated, nil
}
