package registry

// Capture turns an explicit Signature into its wire-transmissible
// ArgumentDescriptor, applying the "no args" sentinel when every slot is
// empty.
func Capture(sig Signature) ArgumentDescriptor {
	if len(sig.Positional) == 0 && len(sig.Kw) == 0 && sig.VarargsName == "" && sig.KwargsName == "" {
		return ArgumentDescriptor{NoArgs: true}
	}

	desc := ArgumentDescriptor{
		Positional: append([]string{}, sig.Positional...),
		Kw:         make(map[string]interface{}, len(sig.Kw)),
	}

	for _, kw := range sig.Kw {
		desc.Kw[kw.Name] = kw.Default
	}

	if sig.VarargsName != "" {
		name := sig.VarargsName
		desc.VarargsName = &name
	}

	if sig.KwargsName != "" {
		name := sig.KwargsName
		desc.KwargsName = &name
	}

	return desc
}
