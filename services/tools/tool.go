package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat/models"

	"github.com/invopop/jsonschema"
)

// Tool is a named operation the model may call.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Call(ctx context.Context, args map[string]any) (string, error)
}

func Contract(t Tool) models.ToolContract {
	return models.ToolContract{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}

// generateSchema reflects T into a JSON schema object.
func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal schema for %T: %v", v, err))
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("failed to decode schema for %T: %v", v, err))
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

// decodeArgs converts loosely typed tool arguments into T.
func decodeArgs[T any](args map[string]any) (T, error) {
	var params T
	if args == nil {
		return params, nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return params, fmt.Errorf("failed to encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("failed to parse arguments: %w", err)
	}
	return params, nil
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(data), nil
}
