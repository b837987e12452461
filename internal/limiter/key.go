package limiter

import "fmt"

// BuildIdentifier derives the rate-limit identifier for a (subject,
// action, resource) triple. Authenticated callers are keyed per user,
// anonymous callers share a per-action bucket (per resource when one is
// given). The same triple always yields the same identifier and two
// distinct triples never collide.
func BuildIdentifier(subjectID, action, resourceID string) string {
	if subjectID != "" {
		if resourceID != "" {
			return fmt.Sprintf("user:%s:%s:%s", subjectID, action, resourceID)
		}
		return fmt.Sprintf("user:%s:%s", subjectID, action)
	}
	if resourceID == "" {
		resourceID = "global"
	}
	return fmt.Sprintf("anon:%s:%s", action, resourceID)
}
