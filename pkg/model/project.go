package model

// FilterAll is the project filter value that selects every project.
const FilterAll = "all"

// Project summarizes one device extraction grouped under a Project hub node.
type Project struct {
	ID           string `json:"project_id"`
	Name         string `json:"name"`
	ExtractionID string `json:"extraction_id,omitempty"`
	PageCount    int    `json:"page_count"`
	NodeCount    int    `json:"node_count"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// DisplayName returns the project name, or its id when unnamed.
func (p Project) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
