package model

// Component and connector health status constants.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// statusRank orders statuses from best to worst for aggregation.
var statusRank = map[string]int{
	StatusHealthy:   0,
	StatusUnknown:   1,
	StatusDegraded:  2,
	StatusUnhealthy: 3,
}

// WorstStatus returns the worse of two statuses.
func WorstStatus(a, b string) string {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}
