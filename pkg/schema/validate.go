package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrMissingIdentifier marks sections or fields without an identifier.
var ErrMissingIdentifier = errors.New("schema: missing identifier")

// Issue is a single structural problem found in a form payload.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationError aggregates every issue found by Validate.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "schema: invalid form"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Path == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	return "schema: invalid form: " + strings.Join(parts, "; ")
}

// Is lets callers match missing identifiers with errors.Is.
func (e *ValidationError) Is(target error) bool {
	if target != ErrMissingIdentifier || e == nil {
		return false
	}
	for _, issue := range e.Issues {
		if strings.HasSuffix(issue.Path, "/identifier") {
			return true
		}
	}
	return false
}

var (
	formSchemaOnce sync.Once
	formSchema     *openapi3.Schema
)

// structuralSchema describes the shape the codec relies on. Unknown keys are
// allowed; servers add presentation attributes freely.
func structuralSchema() *openapi3.Schema {
	formSchemaOnce.Do(func() {
		identifier := openapi3.NewStringSchema().WithMinLength(1)
		typeID := openapi3.NewOneOfSchema(
			openapi3.NewIntegerSchema(),
			openapi3.NewStringSchema().WithPattern(`^[0-9]+$`),
		)

		field := openapi3.NewObjectSchema().
			WithProperty("identifier", identifier).
			WithProperty("type", typeID).
			WithProperty("enabled", openapi3.NewBoolSchema()).
			WithProperty("choices", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()).WithNullable())
		field.Required = []string{"identifier", "type"}

		section := openapi3.NewObjectSchema().
			WithProperty("identifier", identifier).
			WithProperty("visible", openapi3.NewBoolSchema()).
			WithProperty("add_new_allowed", openapi3.NewBoolSchema()).
			WithProperty("fields", openapi3.NewArraySchema().WithItems(field).WithNullable())
		section.WithProperty("subsections", openapi3.NewArraySchema().WithItems(section).WithNullable())
		section.Required = []string{"identifier"}

		form := openapi3.NewObjectSchema().
			WithProperty("sections", openapi3.NewArraySchema().WithItems(section))
		form.Required = []string{"sections"}

		formSchema = form
	})
	return formSchema
}

// Validate checks a JSON form payload against the structural schema and
// returns a *ValidationError listing every issue.
func Validate(raw []byte) error {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return &ValidationError{Issues: []Issue{{Message: fmt.Sprintf("decode: %v", err)}}}
	}

	err := structuralSchema().VisitJSON(generic, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	result := &ValidationError{}
	collectIssues(err, &result.Issues)
	return result
}

func collectIssues(err error, dest *[]Issue) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, item := range multi {
			collectIssues(item, dest)
		}
		return
	}
	*dest = append(*dest, issueFromError(err))
}

func issueFromError(err error) Issue {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		path := schemaErr.JSONPointer()
		issue := Issue{Message: schemaErr.Reason}
		if len(path) > 0 {
			issue.Path = "/" + strings.Join(path, "/")
		}
		if schemaErr.SchemaField == "required" {
			if missing := missingProperty(schemaErr.Reason); missing != "" {
				issue.Path = strings.TrimSuffix(issue.Path, "/") + "/" + missing
			}
		}
		return issue
	}
	return Issue{Message: err.Error()}
}

// missingProperty extracts the property name from kin-openapi's
// `property "x" is missing` reason.
func missingProperty(reason string) string {
	start := strings.Index(reason, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(reason[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return reason[start+1 : start+1+end]
}
