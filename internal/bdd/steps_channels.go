package bdd

import (
	"fmt"

	"github.com/cucumber/godog"

	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

func init() {
	cucumber.StepModules = append(cucumber.StepModules, func(ctx *godog.ScenarioContext, s *cucumber.TestScenario) {
		c := &channelSteps{s: s}
		ctx.Step(`^I create a channel with name "([^"]*)"$`, c.iCreateAChannelWithName)
		ctx.Step(`^the channel id is "([^"]*)"$`, c.theChannelIdIs)
		ctx.Step(`^I list channels$`, c.iListChannels)
		ctx.Step(`^I share that memory to that channel$`, c.iShareThatMemoryToThatChannel)
	})
}

type channelSteps struct {
	s *cucumber.TestScenario
}

func (c *channelSteps) iCreateAChannelWithName(name string) error {
	body := fmt.Sprintf(`{"name": %q}`, name)
	if err := c.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/channels", &godog.DocString{Content: body}, false, false); err != nil {
		return err
	}
	session := c.s.Session()
	if session.Resp == nil || session.Resp.StatusCode != 200 {
		return nil
	}
	respJSON, err := session.RespJSON()
	if err != nil {
		return err
	}
	if obj, ok := respJSON.(map[string]interface{}); ok {
		if id, ok := obj["id"]; ok {
			c.s.Variables["channelId"] = id
		}
	}
	return nil
}

func (c *channelSteps) theChannelIdIs(id string) error {
	c.s.Variables["channelId"] = id
	return nil
}

func (c *channelSteps) iListChannels() error {
	return c.s.SendHTTPRequestWithJSONBodyAndStyle("GET", "/api/v1/channels", nil, false, true)
}

func (c *channelSteps) iShareThatMemoryToThatChannel() error {
	body := `{"memoryId": ${memoryId}}`
	return c.s.SendHTTPRequestWithJSONBodyAndStyle("POST", "/api/v1/channels/${channelId}/share", &godog.DocString{Content: body}, false, true)
}
