package audit

import "strings"

// Action labels written by the verification workflow. Labels are free-form
// text on the wire; these are the ones the service itself emits.
const (
	ActionOfficerLogin                  = "Officer Login"
	ActionFailedOfficerLogin            = "Failed Officer Login"
	ActionVoterIdentified               = "Voter Identified"
	ActionDuplicateVoteAttempt          = "Duplicate Vote Attempt"
	ActionFaceVerified                  = "Face Verified"
	ActionFaceVerificationFailed        = "Face Verification Failed"
	ActionFingerprintVerified           = "Fingerprint Verified"
	ActionFingerprintVerificationFailed = "Fingerprint Verification Failed"
	ActionVoteSubmitted                 = "Vote Submitted"
)

// UnknownBooth is recorded for failed logins, before the officer's booth is known.
const UnknownBooth = "UNKNOWN"

// Status is the activity-feed classification of an entry.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusRejected   Status = "rejected"
	StatusSuspicious Status = "suspicious"
)

// Classify derives a feed status from the action label by substring:
// "Failed" or "Rejected" is rejected, "Duplicate" or "Suspicious" is
// suspicious, anything else is success. Dashboard consumers depend on this
// exact mapping; replace it here, not at call sites.
func Classify(action string) Status {
	switch {
	case strings.Contains(action, "Failed"), strings.Contains(action, "Rejected"):
		return StatusRejected
	case strings.Contains(action, "Duplicate"), strings.Contains(action, "Suspicious"):
		return StatusSuspicious
	default:
		return StatusSuccess
	}
}

// IsSuspicious reports whether an entry counts toward a booth's suspicious
// total: its action contains "Failed" or "Duplicate".
func IsSuspicious(action string) bool {
	return strings.Contains(action, "Failed") || strings.Contains(action, "Duplicate")
}
