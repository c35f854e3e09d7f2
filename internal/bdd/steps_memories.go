package bdd

import (
	"fmt"

	"github.com/cucumber/godog"

	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

func init() {
	cucumber.StepModules = append(cucumber.StepModules, func(ctx *godog.ScenarioContext, s *cucumber.TestScenario) {
		m := &memorySteps{s: s}
		ctx.Step(`^I add a memory with content "([^"]*)"$`, m.iAddAMemoryWithContent)
		ctx.Step(`^I add a memory with request:$`, m.iAddAMemoryWithRequest)
		ctx.Step(`^the memory id is "([^"]*)"$`, m.theMemoryIdIs)
		ctx.Step(`^I get that memory$`, m.iGetThatMemory)
		ctx.Step(`^I get memory "([^"]*)"$`, m.iGetMemory)
		ctx.Step(`^I list memories$`, m.iListMemories)
		ctx.Step(`^I list memories with query "([^"]*)"$`, m.iListMemoriesWithQuery)
		ctx.Step(`^I update that memory with request:$`, m.iUpdateThatMemoryWithRequest)
		ctx.Step(`^I invalidate that memory$`, m.iInvalidateThatMemory)
		ctx.Step(`^I get the history for that memory$`, m.iGetHistoryForThatMemory)
	})
}

type memorySteps struct {
	s *cucumber.TestScenario
}

func (m *memorySteps) iAddAMemoryWithContent(content string) error {
	body := fmt.Sprintf(`{"content": %q}`, content)
	return m.addMemory(&godog.DocString{Content: body})
}

func (m *memorySteps) iAddAMemoryWithRequest(body *godog.DocString) error {
	return m.addMemory(body)
}

func (m *memorySteps) addMemory(body *godog.DocString) error {
	if err := m.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/memories", body, false, true); err != nil {
		return err
	}
	session := m.s.Session()
	if session.Resp == nil || session.Resp.StatusCode != 200 {
		return nil
	}
	respJSON, err := session.RespJSON()
	if err != nil {
		return err
	}
	if obj, ok := respJSON.(map[string]interface{}); ok {
		if id, ok := obj["id"]; ok {
			m.s.Variables["memoryId"] = id
		}
	}
	return nil
}

func (m *memorySteps) theMemoryIdIs(id string) error {
	m.s.Variables["memoryId"] = id
	return nil
}

func (m *memorySteps) iGetThatMemory() error {
	return m.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/memories/${memoryId}", nil, false, true)
}

func (m *memorySteps) iGetMemory(id string) error {
	m.s.Variables["memoryId"] = id
	return m.iGetThatMemory()
}

func (m *memorySteps) iListMemories() error {
	return m.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/memories", nil, false, true)
}

func (m *memorySteps) iListMemoriesWithQuery(query string) error {
	return m.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/memories?"+query, nil, false, true)
}

func (m *memorySteps) iUpdateThatMemoryWithRequest(body *godog.DocString) error {
	return m.s.SendHTTPRequestWithJSONBodyAndStyle("PUT", "/api/v1/memories/${memoryId}", body, false, true)
}

func (m *memorySteps) iInvalidateThatMemory() error {
	return m.s.SendHTTPRequestWithJSONBodyAndStyle("DELETE", "/api/v1/memories/${memoryId}", nil, false, true)
}

func (m *memorySteps) iGetHistoryForThatMemory() error {
	return m.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/memories/${memoryId}/history", nil, false, true)
}
