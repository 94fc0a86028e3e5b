package replenishment

import "github.com/OthmaneWahbi/gab-flow-insights/internal/domain"

// FilterCritical returns the machines whose days remaining is at or below
// CriticalDaysThreshold, in input order.
func FilterCritical(states []domain.MachineStateRecord) []domain.MachineStateRecord {
	critical := make([]domain.MachineStateRecord, 0, len(states))
	for _, s := range states {
		if s.DaysRemaining <= CriticalDaysThreshold {
			critical = append(critical, s)
		}
	}
	return critical
}
