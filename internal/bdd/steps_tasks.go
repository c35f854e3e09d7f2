package bdd

import (
	"fmt"

	"github.com/cucumber/godog"

	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

func init() {
	cucumber.StepModules = append(cucumber.StepModules, func(ctx *godog.ScenarioContext, s *cucumber.TestScenario) {
		t := &taskSteps{s: s}
		ctx.Step(`^I create a task with title "([^"]*)"$`, t.iCreateATaskWithTitle)
		ctx.Step(`^the task id is "([^"]*)"$`, t.theTaskIdIs)
		ctx.Step(`^I get that task$`, t.iGetThatTask)
		ctx.Step(`^I list tasks$`, t.iListTasks)
		ctx.Step(`^I claim that task$`, t.iClaimThatTask)
		ctx.Step(`^I start that task$`, t.iStartThatTask)
		ctx.Step(`^I complete that task with result "([^"]*)"$`, t.iCompleteThatTaskWithResult)
		ctx.Step(`^I fail that task with reason "([^"]*)"$`, t.iFailThatTaskWithReason)
	})
}

type taskSteps struct {
	s *cucumber.TestScenario
}

func (t *taskSteps) iCreateATaskWithTitle(title string) error {
	body := fmt.Sprintf(`{"title": %q}`, title)
	if err := t.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/tasks", &godog.DocString{Content: body}, false, false); err != nil {
		return err
	}
	session := t.s.Session()
	if session.Resp == nil || session.Resp.StatusCode != 200 {
		return nil
	}
	respJSON, err := session.RespJSON()
	if err != nil {
		return err
	}
	if obj, ok := respJSON.(map[string]interface{}); ok {
		if id, ok := obj["id"]; ok {
			t.s.Variables["taskId"] = id
		}
	}
	return nil
}

func (t *taskSteps) theTaskIdIs(id string) error {
	t.s.Variables["taskId"] = id
	return nil
}

func (t *taskSteps) iGetThatTask() error {
	return t.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/tasks/${taskId}", nil, false, true)
}

func (t *taskSteps) iListTasks() error {
	return t.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/tasks", nil, false, true)
}

func (t *taskSteps) iClaimThatTask() error {
	return t.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/tasks/${taskId}/claim", nil, false, true)
}

func (t *taskSteps) iStartThatTask() error {
	return t.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/tasks/${taskId}/start", nil, false, true)
}

func (t *taskSteps) iCompleteThatTaskWithResult(result string) error {
	body := fmt.Sprintf(`{"result": %q}`, result)
	return t.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/tasks/${taskId}/complete", &godog.DocString{Content: body}, false, false)
}

func (t *taskSteps) iFailThatTaskWithReason(reason string) error {
	body := fmt.Sprintf(`{"reason": %q}`, reason)
	return t.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/tasks/${taskId}/fail", &godog.DocString{Content: body}, false, false)
}
