package instance

import "os"

const envInstanceID = "STOREFRONT_INSTANCE_ID"

// GetID identifies this worker replica in logs: the explicit instance id,
// then the hostname, then "worker-0".
func GetID() string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
