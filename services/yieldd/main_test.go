package yieldd

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yieldplus/config"
	"yieldplus/storage"
)

func TestOpenDatabaseBackends(t *testing.T) {
	db, err := openDatabase("", config.BackendBolt)
	require.NoError(t, err)
	require.IsType(t, &storage.MemDB{}, db)
	db.Close()

	dir := t.TempDir()
	db, err = openDatabase(filepath.Join(dir, "bolt"), config.BackendBolt)
	require.NoError(t, err)
	require.IsType(t, &storage.BoltDB{}, db)
	db.Close()

	db, err = openDatabase(filepath.Join(dir, "level"), config.BackendLevelDB)
	require.NoError(t, err)
	require.IsType(t, &storage.LevelDB{}, db)
	db.Close()
}

func TestListenCapsConnections(t *testing.T) {
	ln, err := listen("127.0.0.1:0", 1)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	first, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	second, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	held := <-accepted
	select {
	case <-accepted:
		t.Fatal("second connection accepted while the first is open")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, held.Close())
	select {
	case conn := <-accepted:
		require.NoError(t, conn.Close())
	case <-time.After(2 * time.Second):
		t.Fatal("second connection not accepted after the first closed")
	}
}
