package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventEscrowCreated      = "escrow.created"
	EventEscrowFunded       = "escrow.funded"
	EventMilestoneCreated   = "escrow.milestone_created"
	EventMilestoneCompleted = "escrow.milestone_completed"
	EventFundsReleased      = "escrow.funds_released"
	EventFundsRefunded      = "escrow.funds_refunded"
	EventDisputeRaised      = "escrow.dispute_raised"
	EventDisputeResolved    = "escrow.dispute_resolved"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventEscrowCreated, EventEscrowFunded, EventMilestoneCreated, EventMilestoneCompleted,
		EventFundsReleased, EventFundsRefunded, EventDisputeRaised, EventDisputeResolved:
		return true
	default:
		return false
	}
}

// CanonicalEventClass sorts event types into delivery classes. Every
// contract event consumers subscribe to is domain class and delivered
// with retry plus dead-lettering; analytics_only is reserved for
// telemetry that may be dropped on broker failure.
func CanonicalEventClass(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) {
		return CanonicalEventClassDomain
	}
	return ""
}

func CanonicalPartitionKeyPath(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) {
		return "data.escrow_id"
	}
	return ""
}
