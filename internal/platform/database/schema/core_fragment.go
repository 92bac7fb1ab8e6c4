package schema

// CoreFragmentTable represents the 'core.fragment' table
type CoreFragmentTable struct {
	Table        string
	ID           string
	PostID       string
	FragmentType string
	Position     string
	Content      string
	Active       string
}

// CoreFragment is the schema definition for core.fragment
var CoreFragment = CoreFragmentTable{
	Table:        "core.fragment",
	ID:           "id",
	PostID:       "postid",
	FragmentType: "fragmenttype",
	Position:     "position",
	Content:      "content",
	Active:       "active",
}

func (t CoreFragmentTable) Columns() []string {
	return []string{t.ID, t.PostID, t.FragmentType, t.Position, t.Content, t.Active}
}
