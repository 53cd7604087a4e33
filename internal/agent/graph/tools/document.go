package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/assistant-core/server/internal/agent/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

type DocumentQueryInput struct {
	Question string `json:"question"`
}

func createDocumentQueryTool(deps Dependencies) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolDocumentQuery,
			Desc: "Look up the content of the document the user most recently uploaded. Use this tool when the user asks about 'the document', 'the PDF' or its contents.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"question": {
					Type:     "string",
					Desc:     "What the user wants to know about the document",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *DocumentQueryInput) (*model.ActionResult, error) {
			if strings.TrimSpace(in.Question) == "" {
				res := model.Fail("Cannot query the document: the question is missing. Ask the user what they want to know.")
				return &res, nil
			}

			text, ok := deps.Documents.BoundedText()
			if !ok {
				res := model.Fail("No document is loaded. Ask the user to upload a PDF first.")
				return &res, nil
			}

			doc, _ := deps.Documents.Snapshot()
			res := model.Succeed(fmt.Sprintf("Content of %q (%d pages):\n%s", doc.Filename, doc.Pages, text))
			return &res, nil
		},
	)
}
