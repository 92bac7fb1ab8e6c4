package schema

// CorePostTable represents the 'core.post' table
type CorePostTable struct {
	Table             string
	ID                string
	BlogID            string
	ParentID          string
	Title             string
	Status            string
	PathSegment       string
	DateLastPublished string
	RowVersion        string
	CreatedAt         string
	UpdatedAt         string
}

// CorePost is the schema definition for core.post
var CorePost = CorePostTable{
	Table:             "core.post",
	ID:                "id",
	BlogID:            "blogid",
	ParentID:          "parentid",
	Title:             "title",
	Status:            "status",
	PathSegment:       "pathsegment",
	DateLastPublished: "datelastpublished",
	RowVersion:        "rowversion",
	CreatedAt:         "createdat",
	UpdatedAt:         "updatedat",
}
