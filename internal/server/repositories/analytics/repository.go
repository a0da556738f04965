package analytics

import "context"

// Overview aggregates the practice dashboard counters in one shot. The
// windowed counters (new patients, appointment activity) cover the last
// Period days.
type Overview struct {
	TotalPatients         int            `json:"totalPatients"`
	ActivePatients        int            `json:"activePatients"`
	NewPatients           int            `json:"newPatients"`
	TotalReferrals        int            `json:"totalReferrals"`
	ReferralsByStatus     map[string]int `json:"referralsByStatus"`
	ReferralsBySync       map[string]int `json:"referralsBySync"`
	UrgentReferrals       int            `json:"urgentReferrals"`
	AppointmentsToday     int            `json:"appointmentsToday"`
	UpcomingWeek          int            `json:"upcomingWeek"`
	PeriodAppointments    int            `json:"periodAppointments"`
	CompletedAppointments int            `json:"completedAppointments"`
	PendingAppointments   int            `json:"pendingAppointments"`
	Period                int            `json:"period"`
}

type Repository interface {
	Overview(ctx context.Context, periodDays int) (*Overview, error)
}
