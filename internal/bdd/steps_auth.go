package bdd

import (
	"github.com/cucumber/godog"

	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

// testAPIKeys maps the fixed API keys the test server is configured with
// (see cucumber_test.go) to agent ids, so feature files can authenticate
// as any of them by name without a real credential exchange.
var testAPIKeys = map[string]string{
	"agent-a": "key-agent-a",
	"agent-b": "key-agent-b",
	"agent-c": "key-agent-c",
}

func init() {
	cucumber.StepModules = append(cucumber.StepModules, func(ctx *godog.ScenarioContext, s *cucumber.TestScenario) {
		a := &authSteps{s: s}
		ctx.Step(`^I am authenticated as agent "([^"]*)"$`, a.iAmAuthenticatedAsAgent)
		ctx.Step(`^I am not authenticated$`, a.iAmNotAuthenticated)
	})
}

type authSteps struct {
	s *cucumber.TestScenario
}

func (a *authSteps) iAmAuthenticatedAsAgent(agentID string) error {
	key, ok := testAPIKeys[agentID]
	if !ok {
		key = agentID
	}
	a.s.Suite.Mu.Lock()
	if a.s.Users[agentID] == nil {
		a.s.Users[agentID] = &cucumber.TestUser{Name: agentID}
	}
	a.s.Suite.Mu.Unlock()
	a.s.CurrentUser = agentID
	a.s.Session().Header.Set("X-API-Key", key)
	return nil
}

func (a *authSteps) iAmNotAuthenticated() error {
	a.s.Session().Header.Del("X-API-Key")
	return nil
}
