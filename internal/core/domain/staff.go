package domain

import "time"

// PaymentPeriod is how often a staff member's salary is due.
type PaymentPeriod string

const (
	PayDaily   PaymentPeriod = "DAILY"
	PayWeekly  PaymentPeriod = "WEEKLY"
	PayMonthly PaymentPeriod = "MONTHLY"
)

// Days returns the period length used for due-date arithmetic.
func (p PaymentPeriod) Days() int {
	switch p {
	case PayDaily:
		return 1
	case PayWeekly:
		return 7
	default:
		return 30
	}
}

// StaffPermission gates staff operations.
type StaffPermission string

const (
	PermManageGates    StaffPermission = "MANAGE_GATES"
	PermManageFares    StaffPermission = "MANAGE_FARES"
	PermViewStatistics StaffPermission = "VIEW_STATISTICS"
	PermManageStaff    StaffPermission = "MANAGE_STAFF"
	PermOverrideGates  StaffPermission = "OVERRIDE_GATES"
	PermRefund         StaffPermission = "REFUND_TRANSACTIONS"
)

// StaffRole is a named permission set.
type StaffRole string

const (
	RoleSupervisor StaffRole = "SUPERVISOR"
	RoleOperator   StaffRole = "OPERATOR"
	RoleTrainee    StaffRole = "TRAINEE"
)

var rolePermissions = map[StaffRole][]StaffPermission{
	RoleSupervisor: {
		PermManageGates, PermManageFares, PermViewStatistics,
		PermManageStaff, PermOverrideGates, PermRefund,
	},
	RoleOperator: {PermViewStatistics, PermOverrideGates},
	RoleTrainee:  {PermViewStatistics},
}

// Grants reports whether the role carries the permission.
func (r StaffRole) Grants(p StaffPermission) bool {
	for _, q := range rolePermissions[r] {
		if q == p {
			return true
		}
	}
	return false
}

// StaffMember employs a rider in one system. A rider may staff several
// systems; the (RiderID, SystemID) pair is the key.
type StaffMember struct {
	RiderID  string        `json:"rider_id"`
	SystemID string        `json:"system_id"`
	Role     StaffRole     `json:"role"`
	Salary   float64       `json:"salary"`
	Period   PaymentPeriod `json:"period"`
	LastPaid time.Time     `json:"last_paid"`
	HiredAt  time.Time     `json:"hired_at"`
}

// PaymentKind classifies a queued staff payment.
type PaymentKind string

const (
	PaySalary PaymentKind = "SALARY"
	PayShift  PaymentKind = "SHIFT_PAY"
)

// PendingPayment is a payment owed to a staff member who was unreachable
// (or whose system could not cover it) at disbursement time. It is delivered
// when the rider becomes reachable again.
type PendingPayment struct {
	ID       string      `json:"id"`
	RiderID  string      `json:"rider_id"`
	SystemID string      `json:"system_id"`
	Amount   float64     `json:"amount"`
	Kind     PaymentKind `json:"kind"`
	QueuedAt time.Time   `json:"queued_at"`
}

// Shift is a staff member's working interval in one system.
type Shift struct {
	RiderID      string     `json:"rider_id"`
	SystemID     string     `json:"system_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Transactions int        `json:"transactions"`
	Incidents    int        `json:"incidents"`
}

// Performance accumulates a staff member's tracked metrics, feeding the
// shift bonus.
type Performance struct {
	RiderID         string    `json:"rider_id"`
	Transactions    int       `json:"transactions"`
	Interactions    int       `json:"interactions"`
	Incidents       int       `json:"incidents"`
	AvgResponseMins float64   `json:"avg_response_mins"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// Bonus derives the performance bonus paid on top of shift pay.
func (p Performance) Bonus() float64 {
	var bonus float64
	if p.Transactions > 1000 {
		bonus += 100
	}
	if p.Transactions > 2000 {
		bonus += 200
	}
	if p.AvgResponseMins > 0 && p.AvgResponseMins < 30 {
		bonus += 100
	}
	bonus += float64(p.Interactions) * 0.5
	return bonus
}
