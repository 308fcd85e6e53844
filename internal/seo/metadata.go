// Package seo reads the one field the tracker consumes from a third-party
// SEO metadata blob: the URL name override.
package seo

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// metadata is the subset of the SEO metadata schema the tracker understands.
type metadata struct {
	URLName string `json:"urlName"`
}

// URLName extracts the urlName field from a raw metadata blob. An absent,
// empty or malformed blob yields "" — treated as "no override", never an
// error.
func URLName(blob datatypes.JSON) string {
	if len(blob) == 0 {
		return ""
	}
	var m metadata
	if err := json.Unmarshal(blob, &m); err != nil {
		return ""
	}
	return m.URLName
}
