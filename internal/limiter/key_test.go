package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		subjectID  string
		action     string
		resourceID string
		want       string
	}{
		{
			name:      "authenticated without resource",
			subjectID: "u1",
			action:    "createPost",
			want:      "user:u1:createPost",
		},
		{
			name:       "authenticated with resource",
			subjectID:  "u1",
			action:     "vote",
			resourceID: "p1",
			want:       "user:u1:vote:p1",
		},
		{
			name:   "anonymous without resource",
			action: "general",
			want:   "anon:general:global",
		},
		{
			name:       "anonymous with resource",
			action:     "vote",
			resourceID: "p1",
			want:       "anon:vote:p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildIdentifier(tt.subjectID, tt.action, tt.resourceID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildIdentifierDistinctTriples(t *testing.T) {
	ids := []string{
		BuildIdentifier("u1", "vote", "p1"),
		BuildIdentifier("u1", "vote", "p2"),
		BuildIdentifier("u2", "vote", "p1"),
		BuildIdentifier("u1", "createPost", ""),
		BuildIdentifier("", "vote", "p1"),
	}

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "identifier %q collided", id)
		seen[id] = true
	}
}
