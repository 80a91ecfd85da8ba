package observe

// CallMeta identifies a wrapped call site for telemetry purposes.
type CallMeta struct {
	Name      string // Call name (required)
	Component string // Owning component or subsystem (optional)
	Version   string // Call-site version (optional)
}

// CallID returns the fully qualified call identifier.
// Format: <component>.<name> or just <name>.
func (m CallMeta) CallID() string {
	if m.Component != "" {
		return m.Component + "." + m.Name
	}
	return m.Name
}

// SpanName returns the deterministic span name for runs of this call.
// Format: call.run.<component>.<name> or call.run.<name>
func (m CallMeta) SpanName() string {
	return "call.run." + m.CallID()
}

// Validate checks that the metadata is usable for telemetry.
func (m CallMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingCallName
	}
	return nil
}
