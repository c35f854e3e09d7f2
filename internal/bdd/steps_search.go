package bdd

import (
	"github.com/cucumber/godog"

	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

func init() {
	cucumber.StepModules = append(cucumber.StepModules, func(ctx *godog.ScenarioContext, s *cucumber.TestScenario) {
		search := &searchSteps{s: s}
		ctx.Step(`^I search with request:$`, search.iSearchWithRequest)
	})
}

type searchSteps struct {
	s *cucumber.TestScenario
}

func (sr *searchSteps) iSearchWithRequest(body *godog.DocString) error {
	return sr.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/search", body, false, true)
}
