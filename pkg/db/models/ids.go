package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it zero. Postgres also
// defaults ids, but assigning in Go keeps ids known before the insert returns
// and lets sqlite-backed tests share the same code path.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
