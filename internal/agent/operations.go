package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OperationName identifies one of the operations the assistant may invoke.
type OperationName string

const (
	OpCreateObjective   OperationName = "create_objective"
	OpGetObjectives     OperationName = "get_objectives"
	OpUpdateObjective   OperationName = "update_objective"
	OpDeleteObjective   OperationName = "delete_objective"
	OpRegisterVitalData OperationName = "register_vital_data"
	OpGetVitalData      OperationName = "get_vital_data"
)

// OperationNames lists the complete operation set in a stable order.
var OperationNames = []OperationName{
	OpCreateObjective,
	OpGetObjectives,
	OpUpdateObjective,
	OpDeleteObjective,
	OpRegisterVitalData,
	OpGetVitalData,
}

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Operation is a decoded tool call. The set of implementations is closed:
// only this package can add one.
type Operation interface {
	Name() OperationName
	operation()
}

type CreateObjective struct {
	DataName       string  `json:"data_name"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	ObjectiveValue float64 `json:"objective_value"`
}

type GetObjectives struct{}

type UpdateObjective struct {
	ObjectiveID    uint    `json:"objective_id"`
	ObjectiveValue float64 `json:"objective_value"`
}

type DeleteObjective struct {
	ObjectiveID uint `json:"objective_id"`
}

type RegisterVitalData struct {
	DataName string  `json:"data_name"`
	Value    float64 `json:"value"`
	Date     string  `json:"date,omitempty"`
}

type GetVitalData struct {
	DataName string `json:"data_name,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (CreateObjective) Name() OperationName   { return OpCreateObjective }
func (GetObjectives) Name() OperationName     { return OpGetObjectives }
func (UpdateObjective) Name() OperationName   { return OpUpdateObjective }
func (DeleteObjective) Name() OperationName   { return OpDeleteObjective }
func (RegisterVitalData) Name() OperationName { return OpRegisterVitalData }
func (GetVitalData) Name() OperationName      { return OpGetVitalData }

func (CreateObjective) operation()   {}
func (GetObjectives) operation()     {}
func (UpdateObjective) operation()   {}
func (DeleteObjective) operation()   {}
func (RegisterVitalData) operation() {}
func (GetVitalData) operation()      {}

// DecodeOperation turns a tool call name and its JSON arguments into an
// Operation. Required arguments are checked here; value ranges are checked
// by the services.
func DecodeOperation(name string, arguments string) (Operation, error) {
	switch OperationName(strings.TrimSpace(name)) {
	case OpCreateObjective:
		var op CreateObjective
		if err := decodeArguments(arguments, &op); err != nil {
			return nil, err
		}
		if strings.TrimSpace(op.DataName) == "" || op.StartDate == "" || op.EndDate == "" {
			return nil, fmt.Errorf("%w: data_name, start_date and end_date are required", ErrInvalidArguments)
		}
		return op, nil
	case OpGetObjectives:
		return GetObjectives{}, nil
	case OpUpdateObjective:
		var op UpdateObjective
		if err := decodeArguments(arguments, &op); err != nil {
			return nil, err
		}
		if op.ObjectiveID == 0 {
			return nil, fmt.Errorf("%w: objective_id is required", ErrInvalidArguments)
		}
		return op, nil
	case OpDeleteObjective:
		var op DeleteObjective
		if err := decodeArguments(arguments, &op); err != nil {
			return nil, err
		}
		if op.ObjectiveID == 0 {
			return nil, fmt.Errorf("%w: objective_id is required", ErrInvalidArguments)
		}
		return op, nil
	case OpRegisterVitalData:
		var op RegisterVitalData
		if err := decodeArguments(arguments, &op); err != nil {
			return nil, err
		}
		if strings.TrimSpace(op.DataName) == "" {
			return nil, fmt.Errorf("%w: data_name is required", ErrInvalidArguments)
		}
		return op, nil
	case OpGetVitalData:
		var op GetVitalData
		if err := decodeArguments(arguments, &op); err != nil {
			return nil, err
		}
		return op, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
}

func decodeArguments(arguments string, target any) error {
	trimmed := bytes.TrimSpace([]byte(arguments))
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
