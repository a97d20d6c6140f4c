package design

// Catalogue is the per-invocation signal table of one comparison circuit.
// Both slices keep dump order.
type Catalogue struct {
	Gold []Signal `json:"gold"`
	Gate []Signal `json:"gate"`

	// Unattributed counts wires that carried neither an origin tag nor a
	// provenance path pointing at one of the input files.
	Unattributed int `json:"unattributed"`
}

// Side returns the signals of one side.
func (c Catalogue) Side(side Side) []Signal {
	if side == Gold {
		return c.Gold
	}
	return c.Gate
}

// Lookup finds a signal by dump name on one side.
func (c Catalogue) Lookup(side Side, name string) (Signal, bool) {
	for _, s := range c.Side(side) {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}

// Attributed returns the signals of one side that carry provenance, in order.
func (c Catalogue) Attributed(side Side) []Signal {
	var out []Signal
	for _, s := range c.Side(side) {
		if s.HasProvenance() {
			out = append(out, s)
		}
	}
	return out
}
