package threat

import "time"

// Type classifies a recorded threat.
type Type string

const (
	TypeScamAddress       Type = "SCAM_ADDRESS"
	TypePhishing          Type = "PHISHING"
	TypeMaliciousContract Type = "MALICIOUS_CONTRACT"
	TypeSuspiciousPattern Type = "SUSPICIOUS_PATTERN"
)

// Severity grades how dangerous a threat is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Threat is a recorded instance of detected malicious behaviour or address.
// Immutable once recorded; the registry only ever evicts it.
type Threat struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Address     string    `json:"address,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PhishingResult is the contract callers may depend on: the verdict shape
// plus the recording side effect. The detection internals are a heuristic
// placeholder for a pluggable classifier.
type PhishingResult struct {
	IsPhishing bool    `json:"isPhishing"`
	Confidence float64 `json:"confidence"`
}

// ContractAnalysis reports bytecode heuristics. Same pluggability note as
// PhishingResult.
type ContractAnalysis struct {
	IsMalicious bool     `json:"isMalicious"`
	Risks       []string `json:"risks"`
}
