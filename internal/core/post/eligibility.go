// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import "strings"

// Reasons reported by [Post.EligibleForPublishing].
const (
	ReasonNotSaved              = "Post must be saved before it can be published"
	ReasonNotDraft              = "Post status must be Draft"
	ReasonPathSegmentMissing    = "PathSegment must be set"
	ReasonAncestorNotPublished  = "All ancestor posts must be Published"
	ReasonAncestorPathMissing   = "All ancestor posts must have a PathSegment"
	ReasonAncestorPathDuplicate = "All posts in the ancestor chain must have a unique PathSegment"
)

// publishFailureHeader opens the message of a refused Publish.
const publishFailureHeader = "Post cannot be published because it does not meet all publishing requirements."

// Eligibility is the outcome of a publishing check.
type Eligibility struct {
	reasons []string
}

// CanPublish reports whether no rule failed.
func (eligibility Eligibility) CanPublish() bool { return len(eligibility.reasons) == 0 }

// Reasons lists the failed rules in the order they were checked.
func (eligibility Eligibility) Reasons() []string {
	return append([]string(nil), eligibility.reasons...)
}

// Error renders the header followed by one " - reason" line per failed rule.
func (eligibility Eligibility) Error() string {
	var builder strings.Builder
	builder.WriteString(publishFailureHeader)
	for _, reason := range eligibility.reasons {
		builder.WriteString("\n - ")
		builder.WriteString(reason)
	}
	return builder.String()
}

// add records reason unless an equal one (ignoring case) is already present.
func (eligibility *Eligibility) add(reason string) {
	for _, existing := range eligibility.reasons {
		if strings.EqualFold(existing, reason) {
			return
		}
	}
	eligibility.reasons = append(eligibility.reasons, reason)
}

// EligibleForPublishing evaluates every publishing rule without stopping at
// the first failure.
//
// The post itself must be a saved draft with a path segment. Walking up the
// parent chain, each ancestor must be published and carry a path segment,
// and no segment may repeat anywhere in the chain including this post.
func (post *Post) EligibleForPublishing() Eligibility {
	var eligibility Eligibility

	if post.id.IsZero() {
		eligibility.add(ReasonNotSaved)
	}
	if post.status != StatusDraft {
		eligibility.add(ReasonNotDraft)
	}
	if post.pathSegment.IsZero() {
		eligibility.add(ReasonPathSegmentMissing)
	}

	seen := map[PathSegment]bool{}
	if !post.pathSegment.IsZero() {
		seen[post.pathSegment] = true
	}

	visited := map[*Post]bool{post: true}
	for ancestor := post.parent; ancestor != nil && !visited[ancestor]; ancestor = ancestor.parent {
		visited[ancestor] = true

		if ancestor.status != StatusPublished {
			eligibility.add(ReasonAncestorNotPublished)
		}

		switch {
		case ancestor.pathSegment.IsZero():
			eligibility.add(ReasonAncestorPathMissing)
		case seen[ancestor.pathSegment]:
			eligibility.add(ReasonAncestorPathDuplicate)
		default:
			seen[ancestor.pathSegment] = true
		}
	}

	return eligibility
}
