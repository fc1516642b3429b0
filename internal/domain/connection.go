package domain

// ConnState is the state of the persistent transport.
type ConnState int

const (
	ConnDisconnected ConnState = iota
	ConnConnecting
	ConnConnected
	ConnReconnecting
	ConnLost
)

func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnReconnecting:
		return "reconnecting"
	case ConnLost:
		return "lost"
	default:
		return "unknown"
	}
}

// ConnStatus is the connection indicator text shown to the user.
type ConnStatus string

const (
	StatusConnected ConnStatus = "Connected"
	StatusOffline   ConnStatus = "Offline"
	StatusLost      ConnStatus = "Connection Lost"
)
