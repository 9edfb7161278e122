package db

import (
	"encoding/json"
	"fmt"
)

// TagRef is the compact tag shape embedded in article rows.
type TagRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagList is a thin wrapper around []TagRef that implements
// sql.Scanner so an aggregated json column (json_agg of {id,name})
// scans straight into an article. Writes go through tag names.
type TagList []TagRef

// Scan implements sql.Scanner
func (t *TagList) Scan(src interface{}) error {
	if t == nil {
		return fmt.Errorf("dbtypes: Scan on nil *TagList")
	}
	if src == nil {
		*t = TagList{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("dbtypes: cannot scan type %T into TagList", src)
	}

	out := TagList{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*t = out
	return nil
}

// Names returns the tag names in order.
func (t TagList) Names() []string {
	out := make([]string, 0, len(t))
	for _, ref := range t {
		out = append(out, ref.Name)
	}
	return out
}
