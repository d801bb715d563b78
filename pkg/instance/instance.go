package instance

import "os"

// GetID names the running process for logs and lock diagnostics. WORKER_ID
// wins, then the platform dyno name, then the host name.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
