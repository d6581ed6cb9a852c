package ports

// Connectivity is the read side of the online/offline signal the gateway
// consults before choosing a tier.
type Connectivity interface {
	// IsOnline reports the current connectivity state.
	IsOnline() bool
	// WasOffline reports whether the signal has been offline at any point
	// since the last ResetWasOffline call, even if connectivity has since
	// been restored. Callers use it to trigger a reconciliation pass.
	WasOffline() bool
	// ResetWasOffline clears the sticky offline marker.
	ResetWasOffline()
}
