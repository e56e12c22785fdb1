package config

import (
	"bufio"
	"os"
	"strings"
)

// Credentials holds the Bitget API credentials. All three parts are required
// before any private endpoint can be called; the fetch and evaluate paths
// work without them.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Passphrase != ""
}

// CredentialsFromEnv reads the Bitget credentials from the environment.
// Missing variables yield an incomplete Credentials value, not an error;
// callers gate the execution path on Complete.
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:     strings.TrimSpace(os.Getenv("BITGET_API_KEY")),
		APISecret:  strings.TrimSpace(os.Getenv("BITGET_API_SECRET")),
		Passphrase: strings.TrimSpace(os.Getenv("BITGET_API_PASSPHRASE")),
	}
}

// LoadEnv reads a .env file and sets environment variables. Variables that
// are already set win over file values, and a missing file is not an error.
func LoadEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		val = unquote(val)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}

	return scanner.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	first, last := val[0], val[len(val)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return val[1 : len(val)-1]
	}
	return val
}
