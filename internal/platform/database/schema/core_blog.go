package schema

// CoreBlogTable represents the 'core.blog' table
type CoreBlogTable struct {
	Table       string
	ID          string
	Name        string
	Description string
	CreatedAt   string
}

// CoreBlog is the schema definition for core.blog
var CoreBlog = CoreBlogTable{
	Table:       "core.blog",
	ID:          "id",
	Name:        "name",
	Description: "description",
	CreatedAt:   "createdat",
}

func (t CoreBlogTable) Columns() []string {
	return []string{t.ID, t.Name, t.Description, t.CreatedAt}
}
