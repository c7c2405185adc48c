// Package endpoint resolves the application API and streaming endpoints the
// shell talks to.
//
// Endpoints are chosen once per process from the runtime environment
// (development or production). Development builds run against a backend on the
// developer machine, so loopback hosts are rewritten for targets that do not
// share the host network stack: the Android emulator reaches the host through
// 10.0.2.2 and a physical device needs the host's LAN address. iOS simulators
// share the host network and use loopback unchanged. Production endpoints are
// never rewritten.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/louisbranch/gatehouse/internal/platform/config"
)

// Environment selects the endpoint profile.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Target describes where the client runs relative to the development backend.
type Target string

const (
	TargetHost      Target = "host"
	TargetSimulator Target = "simulator"
	TargetEmulator  Target = "emulator"
	TargetDevice    Target = "device"
)

// EmulatorHostAlias is the address the Android emulator uses for the host loopback.
const EmulatorHostAlias = "10.0.2.2"

var (
	// ErrLANHostRequired reports a device target without a LAN host to substitute.
	ErrLANHostRequired = errors.New("lan host is required for device target")
	// ErrUnknownEnvironment reports an environment outside development/production.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrUnknownTarget reports a device target the resolver cannot rewrite for.
	ErrUnknownTarget = errors.New("unknown device target")
)

// Profile holds the endpoints of one environment.
type Profile struct {
	APIBaseURL string `env:"API_BASE_URL" yaml:"api_base_url"`
	StreamURL  string `env:"STREAM_URL" yaml:"stream_url"`
}

// Config captures the endpoint inputs read from the environment.
type Config struct {
	Environment Environment `env:"GATEHOUSE_ENV" envDefault:"development"`
	Target      Target      `env:"GATEHOUSE_DEVICE_TARGET" envDefault:"host"`
	LANHost     string      `env:"GATEHOUSE_LAN_HOST"`
	File        string      `env:"GATEHOUSE_ENDPOINTS_FILE"`
	Development Profile     `envPrefix:"GATEHOUSE_DEV_"`
	Production  Profile     `envPrefix:"GATEHOUSE_PROD_"`
}

// Defaults used when neither the endpoints file nor the environment set a URL.
var (
	DefaultDevelopment = Profile{APIBaseURL: "http://localhost:8080"}
	DefaultProduction  = Profile{APIBaseURL: "https://api.gatehouse.app"}
)

// Endpoints is the resolved, process-wide endpoint set.
type Endpoints struct {
	Environment Environment
	APIBaseURL  string
	StreamURL   string
}

// IsProduction reports whether the production profile was selected.
func (e Endpoints) IsProduction() bool {
	return e.Environment == Production
}

// Load reads Config from the environment and resolves it.
func Load() (Endpoints, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Endpoints{}, err
	}
	return Resolve(cfg)
}

// Resolve layers defaults, the optional endpoints file and environment
// overrides, then applies device substitutions and validates the result.
func Resolve(cfg Config) (Endpoints, error) {
	env, err := normalizeEnvironment(cfg.Environment)
	if err != nil {
		return Endpoints{}, err
	}

	profile := DefaultDevelopment
	override := cfg.Development
	if env == Production {
		profile = DefaultProduction
		override = cfg.Production
	}
	if path := strings.TrimSpace(cfg.File); path != "" {
		profiles, err := LoadFile(path)
		if err != nil {
			return Endpoints{}, err
		}
		profile = overlay(profile, profiles[env])
	}
	profile = overlay(profile, override)

	apiURL, err := parseURL("api base url", profile.APIBaseURL, "http", "https")
	if err != nil {
		return Endpoints{}, err
	}
	var streamURL *url.URL
	if strings.TrimSpace(profile.StreamURL) == "" {
		streamURL = deriveStreamURL(apiURL)
	} else if streamURL, err = parseURL("stream url", profile.StreamURL, "ws", "wss"); err != nil {
		return Endpoints{}, err
	}

	if env == Development {
		if err := substituteHost(apiURL, cfg.Target, cfg.LANHost); err != nil {
			return Endpoints{}, err
		}
		if err := substituteHost(streamURL, cfg.Target, cfg.LANHost); err != nil {
			return Endpoints{}, err
		}
	}

	return Endpoints{
		Environment: env,
		APIBaseURL:  strings.TrimRight(apiURL.String(), "/"),
		StreamURL:   streamURL.String(),
	}, nil
}

func normalizeEnvironment(env Environment) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(string(env)))) {
	case "", Development, "dev":
		return Development, nil
	case Production, "prod":
		return Production, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, env)
	}
}

func overlay(base, override Profile) Profile {
	if value := strings.TrimSpace(override.APIBaseURL); value != "" {
		base.APIBaseURL = value
	}
	if value := strings.TrimSpace(override.StreamURL); value != "" {
		base.StreamURL = value
	}
	return base
}

func parseURL(label, raw string, schemes ...string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", label)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", label, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%s %q has no host", label, raw)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("%s %q must use one of %s", label, raw, strings.Join(schemes, ", "))
}

func deriveStreamURL(api *url.URL) *url.URL {
	stream := *api
	stream.Scheme = "ws"
	if api.Scheme == "https" {
		stream.Scheme = "wss"
	}
	stream.Path = strings.TrimRight(api.Path, "/") + "/ws"
	stream.RawQuery = ""
	return &stream
}

func substituteHost(target *url.URL, device Target, lanHost string) error {
	var replacement string
	switch Target(strings.ToLower(strings.TrimSpace(string(device)))) {
	case "", TargetHost, TargetSimulator:
		return nil
	case TargetEmulator:
		replacement = EmulatorHostAlias
	case TargetDevice:
		replacement = strings.TrimSpace(lanHost)
		if replacement == "" {
			return ErrLANHostRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTarget, device)
	}
	if !isLoopback(target.Hostname()) {
		return nil
	}
	if port := target.Port(); port != "" {
		target.Host = net.JoinHostPort(replacement, port)
	} else {
		target.Host = replacement
	}
	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
