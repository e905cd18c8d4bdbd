package domain

import "time"

// DeviceType enumerates supported paging transports.
type DeviceType string

const (
	DeviceTypeEmail DeviceType = "email"
	DeviceTypeSMS   DeviceType = "sms"
	DeviceTypePhone DeviceType = "phone"
)

// ValidDeviceType reports whether t is a known paging transport.
func ValidDeviceType(t DeviceType) bool {
	switch t {
	case DeviceTypeEmail, DeviceTypeSMS, DeviceTypePhone:
		return true
	}
	return false
}

// Device is a user-owned paging endpoint. Stored order is paging priority:
// the first device pages first.
type Device struct {
	ID     string     `json:"id"`
	Type   DeviceType `json:"type"`
	Target string     `json:"target"`
}

// User is the domain model for pageable on-call users. DelaysMinutes holds
// per-gap overrides between successive devices: DelaysMinutes[i] is waited
// between device i and device i+1.
type User struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Devices       []Device
	DelaysMinutes []int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DelayAfterDevice returns the configured gap after device index i, falling
// back to fallbackMinutes when no override is set.
func (u *User) DelayAfterDevice(i, fallbackMinutes int) int {
	if i >= 0 && i < len(u.DelaysMinutes) {
		return u.DelaysMinutes[i]
	}
	return fallbackMinutes
}
