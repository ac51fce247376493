package avatar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModelExtension is the file extension of avatar model bundles.
const ModelExtension = ".imx"

// APISecretPrefix is the expected prefix of bitHuman API secrets.
const APISecretPrefix = "sk_bh_"

// ValidateModelPath checks that path names an existing model file.
func ValidateModelPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("avatar model path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("avatar model %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("avatar model %s is a directory", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ModelExtension) {
		return fmt.Errorf("avatar model %s: expected %s file", path, ModelExtension)
	}
	return nil
}

// Credentials authenticate the runtime against the vendor. One of Token or
// APISecret is required; Token wins when both are set.
type Credentials struct {
	Token     string
	APISecret string
}

// Validate returns an error when no credential is set, and a list of
// non-fatal warnings.
func (c Credentials) Validate() (warnings []string, err error) {
	token := strings.TrimSpace(c.Token)
	secret := strings.TrimSpace(c.APISecret)
	if token == "" && secret == "" {
		return nil, fmt.Errorf("runtime token or API secret is required")
	}
	if token == "" && !strings.HasPrefix(secret, APISecretPrefix) {
		warnings = append(warnings, fmt.Sprintf("API secret does not start with %q", APISecretPrefix))
	}
	return warnings, nil
}

// Mask returns a log-safe form of the active credential.
func (c Credentials) Mask() string {
	v := c.Token
	if v == "" {
		v = c.APISecret
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:6] + "***"
}
