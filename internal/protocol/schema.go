package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed command.schema.json
var commandSchemaJSON []byte

var commandSchema = mustCompileCommandSchema()

func mustCompileCommandSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("command.schema.json", bytes.NewReader(commandSchemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("command.schema.json")
}

// ValidateCommand checks a raw COMMAND frame against the schema before
// it is decoded. The error message is safe to forward to the client.
func ValidateCommand(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := commandSchema.Validate(v); err != nil {
		return err
	}
	return nil
}
