package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# dittorpc Configuration File
#
# Every value can be overridden from the environment with the DITTORPC_
# prefix, e.g. DITTORPC_CLIENT_RETRY_TIMEOUT=500ms or DITTORPC_AUTH_FLAVOR=unix.

`

// sectionComments documents each top-level section of the generated file.
var sectionComments = map[string]string{
	"logging": "# Logging\n# level: DEBUG, INFO, WARN, ERROR\n# format: text, json\n# output: stdout, stderr or a file path",
	"metrics": "# Prometheus metrics served at http://<host>:<port>/metrics",
	"client": "# Client handle settings\n" +
		"# retry_timeout is the first retransmit interval; it doubles up to the backoff ceiling\n" +
		"# call_timeout bounds each call, retransmissions included\n" +
		"# max_send_rate caps datagrams per second (0 = unlimited)\n" +
		"# send_size and recv_size bound datagrams (0 = transport default)",
	"transport": "# Local UDP endpoint\n# network: udp, udp4, udp6\n# local_address empty binds an ephemeral port",
	"auth":      "# Authentication\n# flavor: none, unix\n# Only the section matching the flavor is used",
}

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above each
// section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return buf.String(), nil
}
