package crm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lotworks/dunner/errors"
)

const ownerQueryJSON = `{
	"query": {
		"type": "and",
		"queries": [
			{"type": "object_type", "object_type": "lead"},
			{
				"type": "and",
				"queries": [
					{
						"type": "field_condition",
						"field": {"type": "custom_field", "custom_field_id": "cf_owner"},
						"condition": {"type": "reference", "object_ids": [], "reference_type": "user"}
					},
					{
						"type": "field_condition",
						"field": {"type": "regular_field", "field_name": "created"},
						"condition": {"type": "moment_range"}
					}
				]
			}
		]
	},
	"_limit": 0,
	"results_limit": null
}`

func writeQueryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write query: %v", err)
	}
	return path
}

func TestLoadQuery(t *testing.T) {
	path := writeQueryFile(t, ownerQueryJSON)
	query, err := LoadQuery(path)
	if err != nil {
		t.Fatalf("LoadQuery: %v", err)
	}
	if _, ok := query["query"]; !ok {
		t.Error("query key missing")
	}
}

func TestLoadQuery_MissingFileIsFatal(t *testing.T) {
	_, err := LoadQuery(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("LoadQuery accepted a missing file")
	}
	if !errors.IsFatalConfig(err) {
		t.Errorf("error = %v, want fatal config", err)
	}
}

func TestLoadQuery_InvalidJSONIsFatal(t *testing.T) {
	path := writeQueryFile(t, `{"query": `)
	_, err := LoadQuery(path)
	if err == nil {
		t.Fatal("LoadQuery accepted invalid JSON")
	}
	if !errors.IsFatalConfig(err) {
		t.Errorf("error = %v, want fatal config", err)
	}
}

func TestRewriteOwnerCondition(t *testing.T) {
	path := writeQueryFile(t, ownerQueryJSON)
	query, err := LoadQuery(path)
	if err != nil {
		t.Fatalf("LoadQuery: %v", err)
	}

	if !RewriteOwnerCondition(query, "cf_owner", "user_42") {
		t.Fatal("RewriteOwnerCondition found no owner condition")
	}

	// Walk back down to the rewritten node.
	root := query["query"].(map[string]interface{})
	inner := root["queries"].([]interface{})[1].(map[string]interface{})
	cond := inner["queries"].([]interface{})[0].(map[string]interface{})["condition"].(map[string]interface{})
	ids, _ := cond["object_ids"].([]interface{})
	if len(ids) != 1 || ids[0] != "user_42" {
		t.Errorf("object_ids = %v, want [user_42]", ids)
	}
	// The sibling condition is untouched.
	sibling := inner["queries"].([]interface{})[1].(map[string]interface{})
	if sibling["condition"].(map[string]interface{})["type"] != "moment_range" {
		t.Error("sibling condition was modified")
	}
}

func TestRewriteOwnerCondition_NoMatch(t *testing.T) {
	path := writeQueryFile(t, ownerQueryJSON)
	query, err := LoadQuery(path)
	if err != nil {
		t.Fatalf("LoadQuery: %v", err)
	}
	if RewriteOwnerCondition(query, "cf_some_other_field", "user_42") {
		t.Error("rewrite claimed success for a field the query does not use")
	}
}

func TestCloneQuery_IsolatesRewrites(t *testing.T) {
	path := writeQueryFile(t, ownerQueryJSON)
	template, err := LoadQuery(path)
	if err != nil {
		t.Fatalf("LoadQuery: %v", err)
	}

	clone, err := CloneQuery(template)
	if err != nil {
		t.Fatalf("CloneQuery: %v", err)
	}
	if !RewriteOwnerCondition(clone, "cf_owner", "user_42") {
		t.Fatal("rewrite failed on clone")
	}

	// The template's condition still has no object ids.
	root := template["query"].(map[string]interface{})
	inner := root["queries"].([]interface{})[1].(map[string]interface{})
	cond := inner["queries"].([]interface{})[0].(map[string]interface{})["condition"].(map[string]interface{})
	ids, _ := cond["object_ids"].([]interface{})
	if len(ids) != 0 {
		t.Errorf("template object_ids = %v, rewrite leaked through the clone", ids)
	}
}
