package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const coreSettingsPath = "/rest/core-settings/"

// Generation identifies a server API generation. Major is always at least 2.
type Generation struct {
	Major int
	Minor int
	Patch int
}

var (
	// DefaultV2 is assumed when the settings probe answers 404.
	DefaultV2 = Generation{Major: 2}
	// DefaultV3 is assumed when the settings probe answers 401.
	DefaultV3 = Generation{Major: 3}
)

// ParseGeneration parses an explicit "X.Y.Z" generation string.
func ParseGeneration(s string) (Generation, error) {
	g, err := parseTriple(s)
	if err != nil {
		return Generation{}, err
	}
	if err := g.validate(); err != nil {
		return Generation{}, err
	}
	return g, nil
}

func parseTriple(s string) (Generation, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Generation{}, newError("ParseGeneration", ErrFormat, "version %q must have three dot-separated parts", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || !isDigits(p) {
			return Generation{}, newError("ParseGeneration", ErrFormat, "version %q part %q is not a non-negative integer", s, p)
		}
		nums[i] = n
	}
	return Generation{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (g Generation) validate() error {
	if g.Major < 2 {
		return newError("ParseGeneration", ErrRange, "major version %d is below 2", g.Major)
	}
	return nil
}

func (g Generation) String() string {
	return fmt.Sprintf("%d.%d.%d", g.Major, g.Minor, g.Patch)
}

// Strategy returns the protocol strategy for the generation.
func (g Generation) Strategy() ProtocolStrategy {
	if g.Major >= 3 {
		return v3Strategy{}
	}
	return v2Strategy{}
}

// Generation returns the resolved server generation.
func (c *Client) Generation() Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Client) strategy() ProtocolStrategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.protocol
}

// ResolveVersion determines the server generation and stores it on the
// client. A non-empty explicit string is parsed and trusted; otherwise the
// core settings endpoint is probed.
//
// Must not race with other operations on the same client.
func (c *Client) ResolveVersion(ctx context.Context, explicit string) (Generation, error) {
	ctx = startOperation(ctx)

	var (
		g      Generation
		source string
		err    error
	)
	if explicit != "" {
		g, err = ParseGeneration(explicit)
		source = "explicit"
	} else {
		g, source, err = c.probeGeneration(ctx)
	}
	if err != nil {
		return Generation{}, err
	}

	c.mu.Lock()
	c.generation = g
	c.protocol = g.Strategy()
	c.mu.Unlock()

	c.logger.Info("resolved server generation", "version", g.String(), "source", source)
	c.emit(ctx, Event{Kind: EventVersionResolved, Name: g.String(), Detail: source})
	return g, nil
}

// probeGeneration reads core_version from the settings endpoint. Core
// versions trail the REST generation by one major version.
func (c *Client) probeGeneration(ctx context.Context) (Generation, string, error) {
	const op = "ResolveVersion"

	resp, err := c.transport.Do(ctx, &Request{Method: http.MethodGet, Path: coreSettingsPath})
	if err != nil {
		return Generation{}, "", &Error{Op: op, Err: err, Msg: "settings probe failed"}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var settings struct {
			CoreVersion string `json:"core_version"`
		}
		if err := resp.DecodeJSON(&settings); err != nil {
			return Generation{}, "", newError(op, ErrFormat, "unreadable core settings: %v", err)
		}
		core, err := parseTriple(settings.CoreVersion)
		if err != nil {
			return Generation{}, "", newError(op, ErrFormat, "core_version %q is not X.Y.Z", settings.CoreVersion)
		}
		g := Generation{Major: core.Major + 1, Minor: core.Minor, Patch: core.Patch}
		if err := g.validate(); err != nil {
			return Generation{}, "", err
		}
		return g, "probe", nil
	case http.StatusUnauthorized:
		return DefaultV3, "default", nil
	case http.StatusNotFound:
		return DefaultV2, "default", nil
	default:
		return Generation{}, "", &Error{
			Op:  op,
			Err: &StatusError{Method: http.MethodGet, Path: coreSettingsPath, StatusCode: resp.StatusCode, Body: resp.Body},
			Msg: "unexpected settings probe response",
		}
	}
}
