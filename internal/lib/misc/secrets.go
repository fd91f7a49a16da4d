package misc

import "os"

// secretsMap holds values resolved from *_FILE mounted-secret indirection
// during env loading.  Plain environment variables always win.
var secretsMap = map[string]string{}

func GetSecret(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return secretsMap[key]
}
