package pg

import "strings"

// IsMissingRelation reports whether err looks like Postgres complaining
// that the todos relation does not exist, e.g.
//
//	relation "public.todos" does not exist
//
// The check is a deliberate case-sensitive substring match on the driver's
// error text rather than a schema-introspection call; it is isolated here
// so the matching rule stays auditable in one place. Whether the backend's
// error text is stable across versions is an open question pinned by the
// tests in errors_test.go.
func IsMissingRelation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")
}
