// Code generated by github.com/99designs/gqlgen, DO NOT EDIT.

package model

type Mutation struct {
}

type NewPost struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	Category *string  `json:"category,omitempty"`
	ImageURL *string  `json:"imageUrl,omitempty"`
}

type Query struct {
}

type Subscription struct {
}
