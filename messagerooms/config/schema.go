package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jsvalidate "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms"
)

// GenerateSchema generates the JSON Schema for the config file.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
		Anonymous:                  true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "roomchat configuration"
	schema.Description = "Schema for roomchat config.yml / config.toml."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}

var (
	compiled     *jsvalidate.Schema
	compiledErr  error
	compiledOnce sync.Once
)

func compiledSchema() (*jsvalidate.Schema, error) {
	compiledOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compiledErr = fmt.Errorf("generate schema: %w", err)
			return
		}
		compiler := jsvalidate.NewCompiler()
		if err := compiler.AddResource("roomchat.json", bytes.NewReader(data)); err != nil {
			compiledErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compiledErr = compiler.Compile("roomchat.json")
	})
	return compiled, compiledErr
}

// Validate checks c against the generated schema and the client rules.
func (c *Config) Validate() error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("unmarshal config for validation: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsvalidate.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return messagerooms.WrapError(messagerooms.ErrorInvalidConfig,
				"schema validation failed:\n"+strings.Join(messages, "\n"), err)
		}
		return messagerooms.WrapError(messagerooms.ErrorInvalidConfig, "schema validation failed", err)
	}

	return c.ClientConfig().Validate()
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *jsvalidate.ValidationError, messages *[]string) {
	if err.InstanceLocation != "" {
		*messages = append(*messages, fmt.Sprintf("- %s: %s", err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
