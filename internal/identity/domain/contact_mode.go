package domain

import "errors"

// ErrUnknownContactMode is returned when a contact mode is outside the
// closed set the spec defines.
var ErrUnknownContactMode = errors.New("unknown contact mode")

// ContactMode is the closed set of ways a user can be reached.
type ContactMode string

const (
	ContactModeEmail      ContactMode = "email"
	ContactModeSMS        ContactMode = "sms"
	ContactModeCall       ContactMode = "call"
	ContactModeIM         ContactMode = "im"
	ContactModeSlack      ContactMode = "slack"
	ContactModeHipchat    ContactMode = "hipchat"
	ContactModeRocketchat ContactMode = "rocketchat"
)

var validContactModes = map[ContactMode]struct{}{
	ContactModeEmail:      {},
	ContactModeSMS:        {},
	ContactModeCall:       {},
	ContactModeIM:         {},
	ContactModeSlack:      {},
	ContactModeHipchat:    {},
	ContactModeRocketchat: {},
}

// ParseContactMode validates a raw mode string against the closed set.
func ParseContactMode(value string) (ContactMode, error) {
	m := ContactMode(value)
	if _, ok := validContactModes[m]; !ok {
		return "", ErrUnknownContactMode
	}
	return m, nil
}

func (m ContactMode) String() string { return string(m) }
