package instance

import "os"

// GetID returns the worker instance identifier used as the lock owner.
func GetID() string {
	for _, key := range []string{"PAWFINDERZ_WORKER_ID", "WORKER_ID", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "worker-0"
}
