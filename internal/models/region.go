package models

import "encoding/json"

// Region is one geographic lookup row sourced from the regions reference table.
type Region struct {
	ID          int64           `db:"region_id" json:"region_id"`
	RegionName  string          `db:"region_name" json:"region_name"`
	OrgUnit     string          `db:"org_unit" json:"org_unit"`
	OrgUnitName string          `db:"org_unit_name" json:"org_unit_name"`
	FeatureCode string          `db:"feature_code" json:"feature_code"`
	FeatureName string          `db:"feature_name" json:"feature_name"`
	ObjectID    int64           `db:"object_id" json:"object_id"`
	GeoJSON     json.RawMessage `db:"geojson" json:"geojson,omitempty"`
}

// RegionDetail identifies one region in a lookup request by name and the
// source layer it came from.
type RegionDetail struct {
	RegionName  string `json:"regionName"`
	SourceLayer string `json:"sourceLayer"`
}
