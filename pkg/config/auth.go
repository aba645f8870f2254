package config

import (
	"fmt"

	"github.com/marmos91/dittorpc/internal/protocol/rpc"
	"github.com/marmos91/dittorpc/pkg/clnt"
	"github.com/mitchellh/mapstructure"
)

// unixAuthConfig is the auth.unix section.
type unixAuthConfig struct {
	Stamp       uint32   `mapstructure:"stamp"`
	MachineName string   `mapstructure:"machine_name"`
	UID         uint32   `mapstructure:"uid"`
	GID         uint32   `mapstructure:"gid"`
	GIDs        []uint32 `mapstructure:"gids"`
}

// CreateAuth builds the authenticator selected by cfg.
//
// This factory function uses the Flavor field to determine which
// authenticator to create, then decodes the flavor-specific configuration
// from the corresponding map.
//
// Supported flavors:
//   - "none": AUTH_NONE
//   - "unix": AUTH_SYS, with AUTH_SHORT support
func CreateAuth(cfg *AuthConfig) (clnt.Auth, error) {
	switch cfg.Flavor {
	case "", "none":
		return clnt.AuthNone(), nil
	case "unix":
		return createUnixAuth(cfg.Unix)
	default:
		return nil, fmt.Errorf("unknown auth flavor: %q", cfg.Flavor)
	}
}

// createUnixAuth creates an AUTH_SYS authenticator.
func createUnixAuth(options map[string]any) (clnt.Auth, error) {
	var authCfg unixAuthConfig

	// Environment overrides arrive as strings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &authCfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create unix auth decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode unix auth config: %w", err)
	}

	if authCfg.MachineName == "" {
		return nil, fmt.Errorf("unix auth: machine_name is required")
	}
	if len(authCfg.MachineName) > rpc.MaxMachineNameLen {
		return nil, fmt.Errorf("unix auth: machine_name longer than %d bytes", rpc.MaxMachineNameLen)
	}
	if len(authCfg.GIDs) > rpc.MaxUnixGIDs {
		return nil, fmt.Errorf("unix auth: at most %d gids allowed, got %d", rpc.MaxUnixGIDs, len(authCfg.GIDs))
	}

	return clnt.NewAuthUnix(rpc.UnixAuth{
		Stamp:       authCfg.Stamp,
		MachineName: authCfg.MachineName,
		UID:         authCfg.UID,
		GID:         authCfg.GID,
		GIDs:        authCfg.GIDs,
	})
}
