// Package item defines the Item document, its embedded records, and the
// rules that turn a loosely-typed request payload into a valid Item.
package item

import "time"

// DefaultCommentUser is used when a comment is submitted without a user.
const DefaultCommentUser = "Anonymous"

// Item is the primary persisted document.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Tags         []string  `json:"tags"`
	Details      Details   `json:"details"`
	Reviews      []Review  `json:"reviews"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

// Details is embedded product information.
type Details struct {
	Manufacturer   string   `json:"manufacturer"`
	WarrantyPeriod *float64 `json:"warrantyPeriod,omitempty"`
}

// Review is one embedded review record. All fields are optional.
type Review struct {
	User    string     `json:"user,omitempty"`
	Comment string     `json:"comment,omitempty"`
	Rating  *float64   `json:"rating,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
}

// Comment is one embedded comment record.
type Comment struct {
	User string    `json:"user" validate:"required"`
	Text string    `json:"text" validate:"required,notblank"`
	Date time.Time `json:"date"`
}

// Fields is the normalized, user-controlled part of an Item.
type Fields struct {
	Name        string    `json:"name" validate:"required,notblank"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	Details     Details   `json:"details"`
	Reviews     []Review  `json:"reviews"`
	Comments    []Comment `json:"comments" validate:"dive"`
}

// Apply replaces every user-controlled field of it with f.
// Identity and timestamps are left alone.
func (it *Item) Apply(f Fields) {
	it.Name = f.Name
	it.Description = f.Description
	it.Tags = f.Tags
	it.Details = f.Details
	it.Reviews = f.Reviews
	it.Comments = f.Comments
}

// Clone returns a deep copy of it, so that later mutation of either value
// never affects the other.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	if it.Description != nil {
		d := *it.Description
		out.Description = &d
	}
	if it.Details.WarrantyPeriod != nil {
		w := *it.Details.WarrantyPeriod
		out.Details.WarrantyPeriod = &w
	}
	out.Tags = append(make([]string, 0, len(it.Tags)), it.Tags...)
	out.Comments = append(make([]Comment, 0, len(it.Comments)), it.Comments...)
	out.Reviews = make([]Review, len(it.Reviews))
	for i, r := range it.Reviews {
		if r.Rating != nil {
			v := *r.Rating
			r.Rating = &v
		}
		if r.Date != nil {
			v := *r.Date
			r.Date = &v
		}
		out.Reviews[i] = r
	}
	return &out
}

// EnsureSlices replaces nil sequences with empty ones so they encode as [].
// Documents written by older versions may lack them.
func (it *Item) EnsureSlices() {
	if it.Tags == nil {
		it.Tags = []string{}
	}
	if it.Reviews == nil {
		it.Reviews = []Review{}
	}
	if it.Comments == nil {
		it.Comments = []Comment{}
	}
}
