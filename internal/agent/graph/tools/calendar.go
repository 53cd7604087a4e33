package tools

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/assistant-core/server/internal/actions"
	"github.com/assistant-core/server/internal/agent/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type CalendarCreateEventInput struct {
	Summary       string   `json:"summary"`
	StartDatetime string   `json:"start_datetime"`
	EndDatetime   string   `json:"end_datetime"`
	Description   string   `json:"description,omitempty"`
	Location      string   `json:"location,omitempty"`
	Timezone      string   `json:"timezone,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
}

func createCalendarCreateEventTool(deps Dependencies) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCalendarCreateEvent,
			Desc: "Create an event in the user's Google Calendar. Use this tool when the user asks to schedule an event, meeting or appointment. Requires summary, start_datetime and end_datetime in RFC3339 format (e.g. 2025-12-10T10:00:00-07:00); description, location, timezone and attendees are optional.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"summary": {
					Type:     "string",
					Desc:     "Event title",
					Required: true,
				},
				"start_datetime": {
					Type:     "string",
					Desc:     "Event start in RFC3339, e.g. 2025-12-10T10:00:00-07:00",
					Required: true,
				},
				"end_datetime": {
					Type:     "string",
					Desc:     "Event end in RFC3339",
					Required: true,
				},
				"description": {
					Type: "string",
					Desc: "Optional event description",
				},
				"location": {
					Type: "string",
					Desc: "Optional event location",
				},
				"timezone": {
					Type: "string",
					Desc: "Optional IANA timezone, e.g. America/Mazatlan",
				},
				"attendees": {
					Type:     "array",
					Desc:     "Optional list of attendee email addresses",
					ElemInfo: &schema.ParameterInfo{Type: "string"},
				},
			}),
		},
		func(ctx context.Context, in *CalendarCreateEventInput) (*model.ActionResult, error) {
			if missing := missingEventFields(in); missing != "" {
				res := model.Fail(fmt.Sprintf("Cannot create the event yet: %s. Ask the user for the missing information.", missing))
				return &res, nil
			}

			tz := strings.TrimSpace(in.Timezone)
			if tz == "" {
				tz = deps.DefaultTimezone
			}
			attendees := make([]string, 0, len(in.Attendees))
			for _, a := range in.Attendees {
				if a = strings.TrimSpace(a); a != "" {
					attendees = append(attendees, a)
				}
			}

			res := deps.Actions.CreateEvent(ctx, actions.EventRequest{
				Summary:       strings.TrimSpace(in.Summary),
				Description:   in.Description,
				Location:      in.Location,
				StartDatetime: strings.TrimSpace(in.StartDatetime),
				EndDatetime:   strings.TrimSpace(in.EndDatetime),
				Timezone:      tz,
				Attendees:     attendees,
			})
			return &res, nil
		},
	)
}

func missingEventFields(in *CalendarCreateEventInput) string {
	var problems []string
	if strings.TrimSpace(in.Summary) == "" {
		problems = append(problems, "the event title (summary) is missing")
	}
	problems = appendDatetimeProblem(problems, "start_datetime", in.StartDatetime)
	problems = appendDatetimeProblem(problems, "end_datetime", in.EndDatetime)
	for _, a := range in.Attendees {
		if a = strings.TrimSpace(a); a == "" {
			continue
		} else if _, err := mail.ParseAddress(a); err != nil {
			problems = append(problems, fmt.Sprintf("attendee %q is not a valid email address", a))
		}
	}
	return strings.Join(problems, "; ")
}

func appendDatetimeProblem(problems []string, field, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return append(problems, fmt.Sprintf("%s is missing", field))
	}
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		return append(problems, fmt.Sprintf("%s %q is not RFC3339 (expected e.g. 2025-12-10T10:00:00-07:00)", field, value))
	}
	return problems
}
