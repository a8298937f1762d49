package event

const (
	KindMetadata    = 0
	KindTextNote    = 1
	KindContactList = 3
)

// IsReplaceable reports whether only the latest event per kind and author is kept
func IsReplaceable(kind int) bool {
	return kind == KindMetadata || kind == KindContactList || (kind >= 10000 && kind < 20000)
}

// IsEphemeral reports whether the kind is in the ephemeral range
func IsEphemeral(kind int) bool {
	return kind >= 20000 && kind < 30000
}

// IsAddressable reports whether the kind is parameterized replaceable
func IsAddressable(kind int) bool {
	return kind >= 30000 && kind < 40000
}

// IsRegular reports whether the event identity is its id
func IsRegular(kind int) bool {
	return !IsReplaceable(kind) && !IsEphemeral(kind) && !IsAddressable(kind)
}
