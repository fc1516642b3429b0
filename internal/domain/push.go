package domain

// Permission mirrors the platform notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// PushKeys are the subscription's client-side encryption keys,
// base64url encoded without padding.
type PushKeys struct {
	P256dh string `json:"p256dh" yaml:"p256dh"`
	Auth   string `json:"auth" yaml:"auth"`
}

// PushSubscription is the endpoint descriptor registered with the server.
type PushSubscription struct {
	Endpoint       string   `json:"endpoint" yaml:"endpoint"`
	ExpirationTime *int64   `json:"expirationTime" yaml:"expiration_time,omitempty"`
	Keys           PushKeys `json:"keys" yaml:"keys"`
	// ServerKey is the application server key the subscription is bound to.
	ServerKey string `json:"-" yaml:"server_key"`
}

// SubscriptionRequest is the body submitted to the subscription endpoint.
type SubscriptionRequest struct {
	DeviceID     DeviceID         `json:"device_id"`
	Subscription PushSubscription `json:"subscription"`
}
