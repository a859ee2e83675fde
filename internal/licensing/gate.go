package licensing

import (
	"fmt"
	"strings"
)

// Policy is the active minimum-version policy as seen by the gate.
type Policy struct {
	MinimumVersion string
	CurrentVersion string
	DownloadURL    string
}

// UpdateInfo is attached to UPDATE_REQUIRED responses.
type UpdateInfo struct {
	Message        string `json:"message"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
	CurrentVersion string `json:"currentVersion"`
	MinimumVersion string `json:"minimumVersion"`
	LatestVersion  string `json:"latestVersion,omitempty"`
}

// GateResult is the verdict of the version gate.
type GateResult struct {
	OK   bool
	Info *UpdateInfo
	// PolicyMalformed is set when the policy minimum did not parse and the
	// gate failed open because of it.
	PolicyMalformed bool
}

// Evaluate checks clientVersion against policy. No policy, or a policy whose
// minimum cannot be parsed, never blocks.
func Evaluate(clientVersion string, policy *Policy) GateResult {
	if policy == nil || strings.TrimSpace(policy.MinimumVersion) == "" {
		return GateResult{OK: true}
	}
	minimum, err := ParseVersion(policy.MinimumVersion)
	if err != nil {
		return GateResult{OK: true, PolicyMalformed: true}
	}
	client := ClientVersion(clientVersion)
	if Compare(client, minimum) >= 0 {
		return GateResult{OK: true}
	}
	return GateResult{
		OK: false,
		Info: &UpdateInfo{
			Message: fmt.Sprintf("Version %s is no longer supported. Please update to version %s or later.",
				client, policy.MinimumVersion),
			DownloadURL:    policy.DownloadURL,
			CurrentVersion: client.String(),
			MinimumVersion: policy.MinimumVersion,
			LatestVersion:  policy.CurrentVersion,
		},
	}
}
