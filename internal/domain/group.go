package domain

import "time"

// EscalationPolicy orders subscribers for paging and on-call rotation.
type EscalationPolicy struct {
	RotationIntervalDays  int          `json:"rotation_interval_days"`
	PagingIntervalMinutes int          `json:"paging_interval_minutes"`
	Subscribers           []Subscriber `json:"subscribers"`
}

// Subscriber is a user's membership entry in an escalation policy.
// DeactivateAt is only meaningful while the subscriber is active;
// ReactivateAt holds the scheduled return while inactive. A fired
// transition clears its date field.
type Subscriber struct {
	UserID       string     `json:"user_id"`
	Active       bool       `json:"active"`
	DeactivateAt *time.Time `json:"deactivate_at,omitempty"`
	ReactivateAt *time.Time `json:"reactivate_at,omitempty"`
}

// Group owns exactly one escalation policy. Version is the optimistic
// concurrency token serializing read-modify-write cycles on the embedded
// subscriber list.
type Group struct {
	Name        string
	Policy      *EscalationPolicy
	LastRotated time.Time
	AdminIDs    []string
	MemberIDs   []string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rotate left-shifts the subscriber order by one position so the next
// subscriber becomes first on-call. Rotating fewer than two subscribers
// is a no-op.
func (p *EscalationPolicy) Rotate() {
	if p == nil || len(p.Subscribers) < 2 {
		return
	}
	first := p.Subscribers[0]
	copy(p.Subscribers, p.Subscribers[1:])
	p.Subscribers[len(p.Subscribers)-1] = first
}

// FindSubscriber returns a pointer into the live subscriber slice, or nil.
func (p *EscalationPolicy) FindSubscriber(userID string) *Subscriber {
	if p == nil {
		return nil
	}
	for i := range p.Subscribers {
		if p.Subscribers[i].UserID == userID {
			return &p.Subscribers[i]
		}
	}
	return nil
}

// ActiveSubscribers returns subscribers currently eligible for paging,
// preserving policy order.
func (p *EscalationPolicy) ActiveSubscribers() []Subscriber {
	if p == nil {
		return nil
	}
	active := make([]Subscriber, 0, len(p.Subscribers))
	for _, sub := range p.Subscribers {
		if sub.Active {
			active = append(active, sub)
		}
	}
	return active
}
