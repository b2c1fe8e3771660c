package domain

type Reason string

const (
	ReasonNewUser             Reason = "new_user"
	ReasonMember              Reason = "member"
	ReasonFreeSlotAvailable   Reason = "free_slot_available"
	ReasonQuotaExceeded       Reason = "quota_exceeded"
	ReasonSubscriptionExpired Reason = "subscription_expired"
)

// Decision is the gate's answer to "may this user consult right now".
type Decision struct {
	Allow   bool
	Reason  Reason
	Message string
}
