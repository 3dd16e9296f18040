package valueobject

// IssueSeverity представляет серьезность найденной проблемы
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "LOW"
	SeverityMedium   IssueSeverity = "MEDIUM"
	SeverityHigh     IssueSeverity = "HIGH"
	SeverityCritical IssueSeverity = "CRITICAL"
)

func (s IssueSeverity) String() string {
	return string(s)
}
