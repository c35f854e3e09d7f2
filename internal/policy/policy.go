// Package policy evaluates an OPA/Rego access-control policy over memory
// operations, gating reads and writes by agent/user ownership the way
// the engine's bi-temporal invariants gate validity.
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/open-policy-agent/opa/rego"
)

// Context carries the caller's identity into policy evaluation.
type Context struct {
	AgentID   string
	UserID    string
	JWTClaims map[string]interface{}
}

// Subject identifies the memory being accessed.
type Subject struct {
	OwnerAgentID *string
	OwnerUserID  *string
}

// Engine evaluates the authz policy that decides whether a caller may
// perform an operation ("read", "write", "invalidate") against a memory.
type Engine struct {
	mu    sync.RWMutex
	query *rego.PreparedEvalQuery
	src   string
}

// defaultAuthzRego allows a caller access to memories it owns (matching
// agent_id or user_id) and denies everything else. An operator can
// override this with a custom policy file without a binary rebuild.
const defaultAuthzRego = `
package memories.authz

import future.keywords.if

default allow = false

allow if {
	input.subject.owner_agent_id == input.context.agent_id
	input.subject.owner_agent_id != ""
}

allow if {
	input.subject.owner_user_id == input.context.user_id
	input.subject.owner_user_id != ""
}

allow if {
	input.subject.owner_agent_id == ""
	input.subject.owner_user_id == ""
}
`

// New creates an Engine. If policyDir is non-empty, the policy is loaded
// from authz.rego in that directory; otherwise the built-in default
// applies.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	e := &Engine{}
	if err := e.load(ctx, policyDir); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context, policyDir string) error {
	src := defaultAuthzRego
	if policyDir != "" {
		data, err := os.ReadFile(filepath.Join(policyDir, "authz.rego"))
		if err != nil {
			log.Warn("policy file not found, using built-in default", "err", err)
		} else {
			src = string(data)
		}
	}
	q, err := prepareQuery(ctx, src)
	if err != nil {
		return fmt.Errorf("policy: compile authz policy: %w", err)
	}
	e.mu.Lock()
	e.query = q
	e.src = src
	e.mu.Unlock()
	return nil
}

// Reload hot-reloads the policy from policyDir.
func (e *Engine) Reload(ctx context.Context, policyDir string) error {
	return e.load(ctx, policyDir)
}

// Source returns the currently active policy text.
func (e *Engine) Source() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.src
}

func prepareQuery(ctx context.Context, src string) (*rego.PreparedEvalQuery, error) {
	r := rego.New(
		rego.Query("data.memories.authz.allow"),
		rego.Module("policy.rego", src),
	)
	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &pq, nil
}

// IsAllowed evaluates the policy for one operation against one subject.
func (e *Engine) IsAllowed(ctx context.Context, operation string, subj Subject, pc Context) (bool, error) {
	e.mu.RLock()
	q := *e.query
	e.mu.RUnlock()

	results, err := q.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"operation": operation,
		"subject":   subjectToMap(subj),
		"context":   contextToMap(pc),
	}))
	if err != nil {
		return false, fmt.Errorf("policy: authz eval: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allow, _ := results[0].Expressions[0].Value.(bool)
	return allow, nil
}

func subjectToMap(s Subject) map[string]interface{} {
	agent, user := "", ""
	if s.OwnerAgentID != nil {
		agent = strings.TrimSpace(*s.OwnerAgentID)
	}
	if s.OwnerUserID != nil {
		user = strings.TrimSpace(*s.OwnerUserID)
	}
	return map[string]interface{}{
		"owner_agent_id": agent,
		"owner_user_id":  user,
	}
}

func contextToMap(pc Context) map[string]interface{} {
	claims := pc.JWTClaims
	if claims == nil {
		claims = map[string]interface{}{}
	}
	return map[string]interface{}{
		"agent_id":   pc.AgentID,
		"user_id":    pc.UserID,
		"jwt_claims": claims,
	}
}
