package instance

import "github.com/meltedmeethas/storefront-backend/pkg/env"

// GetID identifies the running process in logs: the platform dyno name when
// set, else WORKER_ID, else "local".
func GetID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("WORKER_ID", "local")
}
