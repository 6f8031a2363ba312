package h1

// DefaultConnOptions returns the spec §6.5 H1 defaults: keep-alive on,
// canonical (not title-case) header casing, 1 MiB max buffer.
func DefaultConnOptions(isServer bool) ConnOptions {
	return ConnOptions{
		MaxBufferSize:    1 << 20,
		KeepAliveEnabled: true,
		EncoderOptions:   Options{IsServer: isServer},
	}
}
