package bdd

import (
	"fmt"

	"github.com/cucumber/godog"

	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

func init() {
	cucumber.StepModules = append(cucumber.StepModules, func(ctx *godog.ScenarioContext, s *cucumber.TestScenario) {
		a := &agentSteps{s: s}
		ctx.Step(`^I register agent "([^"]*)" with type "([^"]*)"$`, a.iRegisterAgentWithType)
		ctx.Step(`^I list agents$`, a.iListAgents)
		ctx.Step(`^I send a heartbeat for agent "([^"]*)"$`, a.iSendAHeartbeatForAgent)
	})
}

type agentSteps struct {
	s *cucumber.TestScenario
}

func (a *agentSteps) iRegisterAgentWithType(agentID, agentType string) error {
	body := fmt.Sprintf(`{"agentId": %q, "agentType": %q}`, agentID, agentType)
	return a.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/agents/register", &godog.DocString{Content: body}, false, false)
}

func (a *agentSteps) iListAgents() error {
	return a.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/agents", nil, false, true)
}

func (a *agentSteps) iSendAHeartbeatForAgent(agentID string) error {
	return a.s.SendHTTPRequestWithJSONBodyAndStyle("POST", fmt.Sprintf("/api/v1/agents/%s/heartbeat", agentID), nil, false, true)
}
