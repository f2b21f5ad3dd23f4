package store

// User is a denormalized snapshot of a GitHub account.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// Label is a label attached to an issue.
type Label struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
}

// Comment is a single comment on an issue.
type Comment struct {
	ID        int64  `json:"id"`
	User      *User  `json:"user"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Body      string `json:"body"`
}

// Issue is the persisted form of a GitHub issue. Timestamps are kept in the
// API's string form so a load/save cycle does not rewrite them.
type Issue struct {
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	State         string    `json:"state"`
	Locked        bool      `json:"locked"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
	ClosedAt      *string   `json:"closed_at"`
	URL           string    `json:"url"`
	User          *User     `json:"user"`
	Labels        []Label   `json:"labels"`
	Assignees     []User    `json:"assignees"`
	CommentsCount int       `json:"comments_count"`
	Body          *string   `json:"body"`
	Comments      []Comment `json:"comments"`
}

// HasLabel reports whether the issue carries a label with the given name.
func (i *Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// withEmptySlices returns a copy whose list fields serialize as [] rather
// than null.
func (i Issue) withEmptySlices() Issue {
	if i.Labels == nil {
		i.Labels = []Label{}
	}
	if i.Assignees == nil {
		i.Assignees = []User{}
	}
	if i.Comments == nil {
		i.Comments = []Comment{}
	}
	return i
}
