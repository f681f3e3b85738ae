package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const chapterSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "lessons", "quiz", "activity"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "title": {"type": "string", "minLength": 1},
    "icon": {"type": "string"},
    "description": {"type": "string"},
    "lessons": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "title", "cards"],
        "properties": {
          "id": {"type": "string", "pattern": "^[0-9]+-[0-9]+$"},
          "title": {"type": "string", "minLength": 1},
          "icon": {"type": "string"},
          "cards": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
        }
      }
    },
    "quiz": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["prompt", "options", "answer"],
        "properties": {
          "prompt": {"type": "string", "minLength": 1},
          "options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
          "answer": {"type": "integer", "minimum": 0}
        }
      }
    },
    "activity": {
      "type": "object",
      "required": ["type", "title"],
      "properties": {
        "type": {"enum": ["money-idea", "budget-builder", "interest-calc", "biz-detective", "risk-ranker", "portfolio-builder", "certificate"]},
        "title": {"type": "string", "minLength": 1},
        "description": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(chapterSchema))
	})
	return compiledSchema, schemaErr
}

// validateDocument checks a decoded chapter document against the chapter schema.
func validateDocument(doc any) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile chapter schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate chapter: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("chapter does not match schema: %s", strings.Join(msgs, "; "))
}
