package security

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Validator checks workflow inputs before they reach the host layer.
// Distro and user names end up inside `wsl -d <distro> -u root -e bash -lc`
// command lines, so anything that could break out of that context is
// rejected here, once, instead of being escaped at every call site.
type Validator struct {
	maxNameLength int
}

// DefaultMaxNameLength bounds distro and user names; Linux usernames
// cap at 32, WSL distro names run a little longer.
const DefaultMaxNameLength = 64

// NewValidator creates a validator with the given name length limit.
func NewValidator(maxNameLength int) *Validator {
	slog.Info("security_validator_init", "max_name_length", maxNameLength)

	return &Validator{maxNameLength: maxNameLength}
}

// shellMeta covers characters with meaning to sh plus whitespace; none of
// them are legal in WSL distro names or Linux usernames anyway.
const shellMeta = " \t\n\r'\"`$\\|&;<>(){}[]*?!~#"

// ValidateDistroName checks a distro name for emptiness and shell metacharacters.
func (v *Validator) ValidateDistroName(name string) error {
	return v.validateName("distro", name)
}

// ValidateUserName checks a user name for emptiness and shell metacharacters.
func (v *Validator) ValidateUserName(name string) error {
	return v.validateName("user", name)
}

func (v *Validator) validateName(kind, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		slog.Error("security_name_validation_failed", "kind", kind, "reason", "empty")
		return fmt.Errorf("security: %s name is empty", kind)
	}
	if trimmed != name {
		slog.Error("security_name_validation_failed", "kind", kind, "name", name, "reason", "surrounding_whitespace")
		return fmt.Errorf("security: %s name has surrounding whitespace: %q", kind, name)
	}
	if len(name) > v.maxNameLength {
		slog.Error("security_name_validation_failed", "kind", kind, "reason", "too_long", "length", len(name))
		return fmt.Errorf("security: %s name exceeds %d characters", kind, v.maxNameLength)
	}
	if i := strings.IndexAny(name, shellMeta); i >= 0 {
		slog.Error("security_name_validation_failed", "kind", kind, "name", name, "reason", "shell_metacharacter")
		return fmt.Errorf("security: %s name contains forbidden character %q", kind, name[i])
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			slog.Error("security_name_validation_failed", "kind", kind, "reason", "control_character")
			return fmt.Errorf("security: %s name contains control character", kind)
		}
	}
	return nil
}

// ValidateVHDPath checks an explicit VHD path. Empty is allowed (it means
// auto-detect); anything else must be absolute so the DiskPart script is
// unambiguous about which file it attaches.
func (v *Validator) ValidateVHDPath(path string) error {
	if path == "" {
		return nil
	}
	if strings.ContainsAny(path, "\"\n\r") {
		slog.Error("security_vhd_path_validation_failed", "path", path, "reason", "forbidden_character")
		return fmt.Errorf("security: vhd path contains forbidden character: %q", path)
	}
	if !filepath.IsAbs(path) {
		slog.Error("security_vhd_path_validation_failed", "path", path, "reason", "relative_path")
		return fmt.Errorf("security: vhd path must be absolute: %s", path)
	}
	return nil
}
