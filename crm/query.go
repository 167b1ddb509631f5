package crm

import (
	"encoding/json"
	"os"

	"github.com/lotworks/dunner/errors"
)

// LoadQuery reads a saved-search definition exported from the CRM. A
// missing or unparseable file is fatal configuration: the run aborts
// before any record is touched.
func LoadQuery(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(
			errors.NewFatalConfig("query file %s: %v", path, err),
			"export the saved search from the CRM as JSON and point [queries] at it")
	}
	var query map[string]interface{}
	if err := json.Unmarshal(data, &query); err != nil {
		return nil, errors.NewFatalConfig("query file %s is not valid JSON: %v", path, err)
	}
	return query, nil
}

// CloneQuery deep-copies a query so per-run rewrites never leak into the
// shared template.
func CloneQuery(query map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "cloning query")
	}
	var clone map[string]interface{}
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, errors.Wrap(err, "cloning query")
	}
	return clone, nil
}

// RewriteOwnerCondition walks the query tree looking for the
// field_condition on the given custom field and points its object_ids at
// a single user. Returns false when no such condition exists, which
// usually means the saved search was edited out from under the tool.
func RewriteOwnerCondition(query map[string]interface{}, fieldID, userID string) bool {
	root, ok := query["query"].(map[string]interface{})
	if !ok {
		return false
	}
	return rewriteCondition([]interface{}{root}, fieldID, userID)
}

func rewriteCondition(nodes []interface{}, fieldID, userID string) bool {
	for _, raw := range nodes {
		node, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if node["type"] == "field_condition" {
			field, _ := node["field"].(map[string]interface{})
			if field["custom_field_id"] != fieldID {
				continue
			}
			condition, ok := node["condition"].(map[string]interface{})
			if !ok {
				continue
			}
			condition["object_ids"] = []interface{}{userID}
			return true
		}
		if nested, ok := node["queries"].([]interface{}); ok {
			if rewriteCondition(nested, fieldID, userID) {
				return true
			}
		}
	}
	return false
}
