package tools

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/assistant-core/server/internal/actions"
	"github.com/assistant-core/server/internal/agent/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type GmailSendInput struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	FromEmail string `json:"from_email,omitempty"`
}

func createGmailSendTool(deps Dependencies) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGmailSend,
			Desc: "Send an email through the user's Gmail account. Use this tool whenever the user asks to send an email. Requires to (recipient address), subject and body; from_email is an optional sender alias.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"to": {
					Type:     "string",
					Desc:     "Recipient email address, e.g. someone@example.com",
					Required: true,
				},
				"subject": {
					Type:     "string",
					Desc:     "Email subject line",
					Required: true,
				},
				"body": {
					Type:     "string",
					Desc:     "Plain-text email body",
					Required: true,
				},
				"from_email": {
					Type: "string",
					Desc: "Optional sender alias address",
				},
			}),
		},
		func(ctx context.Context, in *GmailSendInput) (*model.ActionResult, error) {
			// Missing or malformed fields never reach the external service;
			// the model gets a corrective observation and can re-ask the user.
			if missing := missingEmailFields(in); missing != "" {
				res := model.Fail(fmt.Sprintf("Cannot send the email yet: %s. Ask the user for the missing information.", missing))
				return &res, nil
			}

			res := deps.Actions.SendEmail(ctx, actions.EmailRequest{
				To:        strings.TrimSpace(in.To),
				Subject:   strings.TrimSpace(in.Subject),
				Body:      in.Body,
				FromEmail: strings.TrimSpace(in.FromEmail),
			})
			return &res, nil
		},
	)
}

func missingEmailFields(in *GmailSendInput) string {
	var problems []string
	to := strings.TrimSpace(in.To)
	if to == "" {
		problems = append(problems, "the recipient address (to) is missing")
	} else if _, err := mail.ParseAddress(to); err != nil {
		problems = append(problems, fmt.Sprintf("%q is not a valid email address", to))
	}
	if strings.TrimSpace(in.Subject) == "" {
		problems = append(problems, "the subject is missing")
	}
	if strings.TrimSpace(in.Body) == "" {
		problems = append(problems, "the body is missing")
	}
	if from := strings.TrimSpace(in.FromEmail); from != "" {
		if _, err := mail.ParseAddress(from); err != nil {
			problems = append(problems, fmt.Sprintf("%q is not a valid sender alias", from))
		}
	}
	return strings.Join(problems, "; ")
}
