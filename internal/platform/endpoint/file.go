package endpoint

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads per-environment profiles from a YAML endpoints file:
//
//	development:
//	  api_base_url: http://localhost:8080
//	production:
//	  api_base_url: https://api.gatehouse.app
//	  stream_url: wss://stream.gatehouse.app/ws
func LoadFile(path string) (map[Environment]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (map[Environment]Profile, error) {
	var raw map[string]Profile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode endpoints file: %w", err)
	}
	profiles := make(map[Environment]Profile, len(raw))
	keys := make(map[Environment]string, len(raw))
	for key, profile := range raw {
		env, err := normalizeEnvironment(Environment(key))
		if err != nil || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("endpoints file: %w: %q", ErrUnknownEnvironment, key)
		}
		if previous, ok := keys[env]; ok {
			return nil, fmt.Errorf("endpoints file: %q and %q both name %s", previous, key, env)
		}
		keys[env] = key
		profiles[env] = profile
	}
	return profiles, nil
}
