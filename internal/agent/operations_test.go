package agent

import (
	"errors"
	"testing"
)

func TestDecodeOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tool      string
		arguments string
		want      Operation
		wantErr   error
	}{
		{
			name:      "create objective",
			tool:      "create_objective",
			arguments: `{"data_name":"steps","start_date":"2025-05-01","end_date":"2025-05-31","objective_value":8000}`,
			want:      CreateObjective{DataName: "steps", StartDate: "2025-05-01", EndDate: "2025-05-31", ObjectiveValue: 8000},
		},
		{name: "get objectives without arguments", tool: "get_objectives", arguments: "", want: GetObjectives{}},
		{name: "update objective", tool: "update_objective", arguments: `{"objective_id":3,"objective_value":9000}`, want: UpdateObjective{ObjectiveID: 3, ObjectiveValue: 9000}},
		{name: "delete objective", tool: "delete_objective", arguments: `{"objective_id":3}`, want: DeleteObjective{ObjectiveID: 3}},
		{name: "register without date", tool: "register_vital_data", arguments: `{"data_name":"weight","value":71.5}`, want: RegisterVitalData{DataName: "weight", Value: 71.5}},
		{name: "get vital data with limit", tool: "get_vital_data", arguments: `{"limit":5}`, want: GetVitalData{Limit: 5}},
		{name: "unknown tool", tool: "drop_tables", arguments: `{}`, wantErr: ErrUnknownOperation},
		{name: "malformed json", tool: "delete_objective", arguments: `{"objective_id":`, wantErr: ErrInvalidArguments},
		{name: "missing goal id", tool: "delete_objective", arguments: `{}`, wantErr: ErrInvalidArguments},
		{name: "negative goal id", tool: "update_objective", arguments: `{"objective_id":-1,"objective_value":1}`, wantErr: ErrInvalidArguments},
		{name: "missing dates", tool: "create_objective", arguments: `{"data_name":"steps","objective_value":1}`, wantErr: ErrInvalidArguments},
		{name: "missing metric", tool: "register_vital_data", arguments: `{"value":1}`, wantErr: ErrInvalidArguments},
	}

	for _, test := range tests {
		got, err := DecodeOperation(test.tool, test.arguments)
		if test.wantErr != nil {
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("%s: expected %v, got %v", test.name, test.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, err)
		}
		if got != test.want {
			t.Fatalf("%s: got %#v, want %#v", test.name, got, test.want)
		}
	}
}

func TestToolDefinitionsCoverEveryOperation(t *testing.T) {
	tools := ToolDefinitions(testMessages(t), "en")
	if len(tools) != len(OperationNames) {
		t.Fatalf("expected %d tools, got %d", len(OperationNames), len(tools))
	}
	for index, tool := range tools {
		if tool.Function == nil || tool.Function.Name != string(OperationNames[index]) {
			t.Fatalf("unexpected tool at %d: %#v", index, tool)
		}
		if tool.Function.Description == "" || tool.Function.Description == "agent.tool."+tool.Function.Name {
			t.Fatalf("missing description for %s", tool.Function.Name)
		}
	}
}
