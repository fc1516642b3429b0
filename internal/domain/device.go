// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxDeviceNameLen  = 64
	DefaultDeviceName = "Device"
)

var (
	ErrDeviceIDInvalid   = errors.New("device id is not a uuid")
	ErrDeviceNameEmpty   = errors.New("device name empty")
	ErrDeviceNameTooLong = errors.New("device name too long")
)

// DeviceID is the client-generated identity of a device. It is stable for
// the lifetime of the local state file.
type DeviceID string

// NewDeviceID avoids ad-hoc uuid calls in adapters.
func NewDeviceID() DeviceID {
	return DeviceID(uuid.NewString())
}

// ParseDeviceID accepts only canonical uuid strings.
func ParseDeviceID(s string) (DeviceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrDeviceIDInvalid
	}
	return DeviceID(id.String()), nil
}

// DeviceInfo is the metadata sent along with a registration request.
type DeviceInfo struct {
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	Hostname   string `json:"hostname,omitempty"`
	UserAgent  string `json:"userAgent"`
	Standalone bool   `json:"standalone"`
}

// DeviceRegistration is the request body of the device registration call.
type DeviceRegistration struct {
	DeviceID DeviceID   `json:"device_id"`
	Name     string     `json:"device_name"`
	Info     DeviceInfo `json:"device_info"`
}

func NewDeviceRegistration(id DeviceID, name string, info DeviceInfo) (*DeviceRegistration, error) {
	if len(name) == 0 {
		return nil, ErrDeviceNameEmpty
	}
	if len(name) > MaxDeviceNameLen {
		return nil, ErrDeviceNameTooLong
	}
	return &DeviceRegistration{DeviceID: id, Name: name, Info: info}, nil
}

// Device is the registration record returned by the server.
type Device struct {
	ID       int64      `json:"id"`
	UserID   int64      `json:"user_id"`
	DeviceID DeviceID   `json:"device_id"`
	Name     string     `json:"device_name"`
	Type     string     `json:"device_type,omitempty"`
	UserName string     `json:"user_name,omitempty"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}
