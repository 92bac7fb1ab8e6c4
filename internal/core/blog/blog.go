// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package blog manages the blogs that own posts.
package blog

import "time"

// Blog is a named collection of posts.
type Blog struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	FieldName        = "name"
	FieldDescription = "description"
)

// NameMaxLength bounds the blog name.
const NameMaxLength = 200
