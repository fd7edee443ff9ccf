package transport

import "strings"

// JIDSuffix is the user-address domain of the messaging transport.
const JIDSuffix = "@s.whatsapp.net"

// NormalizeJID turns a bare phone number into a transport address. Already
// qualified addresses pass through unchanged.
func NormalizeJID(numberOrJID string) string {
	if strings.Contains(numberOrJID, JIDSuffix) {
		return numberOrJID
	}
	return numberOrJID + JIDSuffix
}

// StripJIDSuffix extracts the phone number from a transport address.
func StripJIDSuffix(jid string) string {
	return strings.TrimSuffix(jid, JIDSuffix)
}
