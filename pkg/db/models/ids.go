package models

import "github.com/google/uuid"

// ensureID assigns a fresh identifier when the caller left it empty, so rows
// get the same ids on Postgres and on sqlite in tests.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
