// Package constraint turns a request envelope plus a decision into the
// enforceable sandbox constraint set. Defaults always fail toward the
// narrowest possible surface: no commands and no paths means the
// working directory is the entire grant.
package constraint

import (
	"os"
	"path/filepath"

	"github.com/bluxlabs/bluxguard/internal/decision"
	"github.com/bluxlabs/bluxguard/internal/model"
)

// DefaultEnvAllowlist is the environment surface granted when the
// envelope specifies none.
func DefaultEnvAllowlist() []string {
	return []string{"PATH", "LANG", "LC_ALL", "LC_CTYPE", "HOME"}
}

// DefaultEnvDenylist strips common credential variables regardless of
// what else is allowed.
func DefaultEnvDenylist() []string {
	return []string{
		"AWS_SECRET_ACCESS_KEY",
		"AWS_SESSION_TOKEN",
		"GITHUB_TOKEN",
		"OPENAI_API_KEY",
		"ANTHROPIC_API_KEY",
	}
}

// Resolve computes the constraint set for an envelope under the given
// outcome.
func Resolve(env *model.RequestEnvelope, outcome decision.Outcome) model.Constraints {
	workingDir := env.WorkingDir
	if workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workingDir = wd
		} else {
			workingDir = "/"
		}
	}
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}

	sandboxProfile := env.SandboxProfile
	if sandboxProfile == "" {
		sandboxProfile = model.DefaultSandboxProfile
	}

	timeoutS := env.TimeoutS
	if timeoutS <= 0 {
		timeoutS = model.DefaultTimeoutS
	}

	limits := model.DefaultResourceLimits()
	if env.ResourceLimits != nil {
		limits = *env.ResourceLimits
	}

	network := model.NetworkPolicy{Egress: model.DefaultEgress}
	if env.Network != nil {
		network = *env.Network
		if network.Egress == "" {
			network.Egress = model.DefaultEgress
		}
	}

	allowedCommands := env.AllowedCommands
	if allowedCommands == nil && env.Command != "" {
		allowedCommands = []string{env.Command}
	}

	allowedPaths := env.AllowedPaths
	if len(allowedCommands) == 0 && len(allowedPaths) == 0 && outcome == decision.Allow {
		allowedPaths = []string{workingDir}
	}

	envAllowlist := env.EnvAllowlist
	if envAllowlist == nil {
		envAllowlist = DefaultEnvAllowlist()
	}
	envDenylist := env.EnvDenylist
	if envDenylist == nil {
		envDenylist = DefaultEnvDenylist()
	}

	return model.Constraints{
		ReceiptRequired:    true,
		AllowlistExecution: true,
		WorkingDir:         workingDir,
		SandboxProfile:     sandboxProfile,
		TimeoutS:           timeoutS,
		ResourceLimits:     limits,
		AllowedCommands:    allowedCommands,
		AllowedPaths:       allowedPaths,
		Network:            network,
		Environment: model.EnvironmentPolicy{
			Allowlist: envAllowlist,
			Denylist:  envDenylist,
		},
		ConfirmationRequired: outcome == decision.RequireConfirm,
	}
}
