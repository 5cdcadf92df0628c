package oracle

import "strconv"

var (
	configKey      = []byte("oracle/config")
	oracleIndexKey = []byte("oracle/oracles")
	tokenIndexKey  = []byte("oracle/tokens")
)

func oracleKey(name string) []byte { return []byte("oracle/oracle/" + name) }

func tokenKey(code string) []byte { return []byte("oracle/token/" + code) }

func periodHeaderKey(protocol string) []byte {
	return []byte("oracle/periods/" + protocol)
}

func periodSlotKey(protocol string, slot uint64) []byte {
	return []byte("oracle/periods/" + protocol + "/" + strconv.FormatUint(slot, 10))
}
