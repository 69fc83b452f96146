package core

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
)

// moodAnalysis is the JSON shape requested from the model for mood entries.
type moodAnalysis struct {
	Sentiment string   `json:"sentiment" jsonschema:"required,description=One or two sentences on the emotional tone of the entry"`
	Advice    string   `json:"advice" jsonschema:"required,description=Short practical suggestion"`
	Insights  []string `json:"insights" jsonschema:"required,description=Two to four brief observations"`
	RiskLevel string   `json:"riskLevel" jsonschema:"required,enum=low,enum=medium,enum=high"`
}

// symptomAnalysis is the JSON shape requested from the model for symptom entries.
type symptomAnalysis struct {
	Sentiment string   `json:"sentiment" jsonschema:"required,description=Plain summary of the reported symptoms"`
	Advice    string   `json:"advice" jsonschema:"required,description=Self-care or next step, never a diagnosis"`
	Insights  []string `json:"insights" jsonschema:"required"`
	Urgency   string   `json:"urgency" jsonschema:"required,enum=low,enum=medium,enum=high,enum=emergency"`
}

var (
	moodAnalysisSchema    = generateSchema[moodAnalysis]()
	symptomAnalysisSchema = generateSchema[symptomAnalysis]()
)

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrictObjects(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	// Strict structured output rejects the draft marker.
	delete(m, "$schema")
	return m, nil
}

// ensureStrictObjects closes every object and marks all of its properties
// required, in sorted order so the schema text is stable across runs.
func ensureStrictObjects(schema map[string]interface{}) {
	if schemaType, ok := schema["type"].(string); ok && schemaType == "object" {
		schema["additionalProperties"] = false
		if properties, ok := schema["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(properties))
			for name := range properties {
				required = append(required, name)
			}
			sort.Strings(required)
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}

	if properties, ok := schema["properties"].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrictObjects(propMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureStrictObjects(items)
	}
}
