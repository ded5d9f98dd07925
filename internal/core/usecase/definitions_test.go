package usecase

import (
	"strings"
	"testing"
)

const validDeclarations = `{
	"entities": [
		{
			"name": "task",
			"schema": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"title": {"type": "string"},
					"status": {"type": "string"}
				}
			},
			"permissions": {
				"create": [{"effect": "allow", "roles": ["editor"]}],
				"get": [{"effect": "allow"}]
			},
			"workflows": [
				{
					"name": "lifecycle",
					"field": "status",
					"initial": "todo",
					"transitions": [
						{"from": "todo", "to": "done", "triggers": ["notify"]}
					]
				}
			]
		}
	]
}`

func TestLoadEntityDefinitions(t *testing.T) {
	defs, err := LoadEntityDefinitions([]byte(validDeclarations))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected one definition, got %d", len(defs))
	}

	def := defs[0]
	if def.Name != "task" {
		t.Fatalf("unexpected name %q", def.Name)
	}
	if len(def.Schema) == 0 {
		t.Fatal("schema must be retained as raw json")
	}
	if len(def.Rules("create")) != 1 || len(def.Rules("get")) != 1 {
		t.Fatalf("unexpected permission rules %+v", def.Permissions)
	}
	if len(def.Rules("delete")) != 0 {
		t.Fatal("undeclared operations must have no rules")
	}
	if len(def.Workflows) != 1 || def.Workflows[0].Initial != "todo" {
		t.Fatalf("unexpected workflows %+v", def.Workflows)
	}
	if got := def.Workflows[0].Transitions[0].Triggers; len(got) != 1 || got[0] != "notify" {
		t.Fatalf("unexpected triggers %v", got)
	}
}

func TestLoadEntityDefinitionsRejectsMalformedJSON(t *testing.T) {
	if _, err := LoadEntityDefinitions([]byte(`{"entities": [`)); err == nil {
		t.Fatal("expected error for truncated json")
	}
}

func TestLoadEntityDefinitionsRejectsUnknownOperation(t *testing.T) {
	raw := `{
		"entities": [
			{
				"name": "task",
				"permissions": {"destroy": [{"effect": "allow"}]}
			}
		]
	}`
	_, err := LoadEntityDefinitions([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected meta-schema rejection, got %v", err)
	}
}

func TestLoadEntityDefinitionsRejectsDuplicateName(t *testing.T) {
	raw := `{
		"entities": [
			{"name": "task"},
			{"name": "task"}
		]
	}`
	_, err := LoadEntityDefinitions([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "declared twice") {
		t.Fatalf("expected duplicate-name error, got %v", err)
	}
}

func TestLoadEntityDefinitionsRejectsDuplicateWorkflowField(t *testing.T) {
	raw := `{
		"entities": [
			{
				"name": "task",
				"workflows": [
					{"name": "a", "field": "status", "initial": "x", "transitions": [{"from": "x", "to": "y"}]},
					{"name": "b", "field": "status", "initial": "x", "transitions": [{"from": "x", "to": "y"}]}
				]
			}
		]
	}`
	if _, err := LoadEntityDefinitions([]byte(raw)); err == nil {
		t.Fatal("expected error for two workflows on the same field")
	}
}
