// Package gitclient has the hosting provider clients.
package gitclient

import "github.com/huangsam/repostats/internal/contract"

// Host defines the operations the update pipeline needs from a hosting provider.
// This allows the merge and aggregation logic to be tested without network access.
type Host = contract.Host

// UserURLTemplate renders a GitHub user as a Markdown profile link.
const UserURLTemplate = "[%s](https://github.com/%s)"
