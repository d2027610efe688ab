package security

import (
	"strings"
	"testing"
)

func TestValidateDistroName(t *testing.T) {
	v := NewValidator(64)

	tests := []struct {
		name      string
		shouldErr bool
	}{
		{"Ubuntu", false},
		{"Ubuntu-22.04", false},
		{"openSUSE_Tumbleweed", false},
		{"", true},
		{"   ", true},
		{" Ubuntu", true},
		{"Ubuntu ", true},
		{"Ubuntu; rm -rf /", true},
		{"Ubuntu$(reboot)", true},
		{"Ubuntu`id`", true},
		{"Ubuntu|cat", true},
		{strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		err := v.ValidateDistroName(tt.name)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for distro name %q", tt.name)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for distro name %q: %v", tt.name, err)
		}
	}
}

func TestValidateUserName(t *testing.T) {
	v := NewValidator(64)

	if err := v.ValidateUserName("ubuntu"); err != nil {
		t.Errorf("unexpected error for plain user name: %v", err)
	}
	if err := v.ValidateUserName("ubuntu && true"); err == nil {
		t.Error("expected error for user name with shell operator")
	}
	if err := v.ValidateUserName("ubu\x00ntu"); err == nil {
		t.Error("expected error for user name with control character")
	}
}

func TestValidateVHDPath(t *testing.T) {
	v := NewValidator(64)

	if err := v.ValidateVHDPath(""); err != nil {
		t.Errorf("empty path means auto-detect, got: %v", err)
	}
	if err := v.ValidateVHDPath("/var/lib/wsl/ext4.vhdx"); err != nil {
		t.Errorf("unexpected error for absolute path: %v", err)
	}
	if err := v.ValidateVHDPath("relative/ext4.vhdx"); err == nil {
		t.Error("expected error for relative path")
	}
	if err := v.ValidateVHDPath(`/tmp/a"b.vhdx`); err == nil {
		t.Error("expected error for path with double quote")
	}
}
