package agent

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/terraincognita07/lifelog/internal/i18n"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ToolDefinitions describes the operation set to the chat model, with
// descriptions in the requested language.
func ToolDefinitions(messages *i18n.Manager, language string) []openai.Tool {
	tools := make([]openai.Tool, 0, len(OperationNames))
	for _, name := range OperationNames {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(name),
				Description: messages.Translate(language, "agent.tool."+string(name)),
				Parameters:  operationParameters(name),
			},
		})
	}
	return tools
}

func operationParameters(name OperationName) jsonschema.Definition {
	switch name {
	case OpCreateObjective:
		return jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"data_name":       {Type: jsonschema.String, Description: "metric name, for example steps or weight"},
				"start_date":      {Type: jsonschema.String, Description: "first day of the goal, YYYY-MM-DD"},
				"end_date":        {Type: jsonschema.String, Description: "last day of the goal, YYYY-MM-DD"},
				"objective_value": {Type: jsonschema.Number, Description: "target value"},
			},
			Required: []string{"data_name", "start_date", "end_date", "objective_value"},
		}
	case OpUpdateObjective:
		return jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"objective_id":    {Type: jsonschema.Integer, Description: "id of the goal"},
				"objective_value": {Type: jsonschema.Number, Description: "new target value"},
			},
			Required: []string{"objective_id", "objective_value"},
		}
	case OpDeleteObjective:
		return jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"objective_id": {Type: jsonschema.Integer, Description: "id of the goal"},
			},
			Required: []string{"objective_id"},
		}
	case OpRegisterVitalData:
		return jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"data_name": {Type: jsonschema.String, Description: "metric name"},
				"value":     {Type: jsonschema.Number, Description: "measured value"},
				"date":      {Type: jsonschema.String, Description: "time of the reading, YYYY-MM-DD HH:MM:SS; defaults to now"},
			},
			Required: []string{"data_name", "value"},
		}
	case OpGetVitalData:
		return jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"data_name": {Type: jsonschema.String, Description: "only readings of this metric"},
				"limit":     {Type: jsonschema.Integer, Description: "number of readings, default 10"},
			},
		}
	default:
		return jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}
	}
}
