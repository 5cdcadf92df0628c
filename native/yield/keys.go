package yield

var (
	configKey        = []byte("yield/config")
	protocolIndexKey = []byte("yield/protocols")
	activeIndexKey   = []byte("yield/protocols/active")
)

func protocolKey(name string) []byte {
	return []byte("yield/protocol/" + name)
}
