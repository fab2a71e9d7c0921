package tcp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelrt/kestrel"
	"github.com/kestrelrt/kestrel/tcp"
)

// TestDialConnectsToListeningSocket exercises the non-blocking connect path
// end to end: Bind a listener, Dial it, and drive both the server's Accept
// future and the client's Connect future under one scheduler so neither
// side blocks the other.
func TestDialConnectsToListeningSocket(t *testing.T) {
	ln, err := tcp.Bind("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.LocalAddr()

	ts := &twoSided{accept: ln.Accept(), connect: tcp.Dial(addr.String())}
	result := kestrel.BlockOn(kestrel.NewScheduler(), kestrel.FutureFunc[twoSidedResult](ts.Poll))

	require.NoError(t, result.acceptErr)
	require.NoError(t, result.connectErr)
	require.NotNil(t, result.serverSide)
	require.NotNil(t, result.clientSide)

	require.NoError(t, result.serverSide.Close())
	require.NoError(t, result.clientSide.Close())
}

// twoSided polls an Accept future and a Connect future concurrently under
// one scheduler, completing once both sides of the handshake have resolved.
type twoSided struct {
	accept  *tcp.AcceptFuture
	connect *tcp.ConnectFuture

	acceptDone  bool
	connectDone bool

	serverSide *tcp.Stream
	clientSide *tcp.Stream
	acceptErr  error
	connectErr error
}

type twoSidedResult struct {
	serverSide *tcp.Stream
	clientSide *tcp.Stream
	acceptErr  error
	connectErr error
}

func (ts *twoSided) Poll(cx *kestrel.Context) (twoSidedResult, bool) {
	if !ts.acceptDone {
		if res, ready := ts.accept.Poll(cx); ready {
			ts.acceptDone = true
			ts.serverSide = res.Stream
			ts.acceptErr = res.Err
		}
	}
	if !ts.connectDone {
		if res, ready := ts.connect.Poll(cx); ready {
			ts.connectDone = true
			ts.clientSide = res.Stream
			ts.connectErr = res.Err
		}
	}
	if ts.acceptDone && ts.connectDone {
		return twoSidedResult{
			serverSide: ts.serverSide,
			clientSide: ts.clientSide,
			acceptErr:  ts.acceptErr,
			connectErr: ts.connectErr,
		}, true
	}
	return twoSidedResult{}, false
}

func TestDialToUnreachablePortSurfacesConnectionRefusedAsReadyResult(t *testing.T) {
	ln, err := tcp.Bind("127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.LocalAddr()
	require.NoError(t, ln.Close()) // free the port so the connect below is refused

	result := kestrel.BlockOn(kestrel.NewScheduler(), tcp.Dial(addr.String()))

	require.Error(t, result.Err)
	require.Nil(t, result.Stream)
}

func TestDialUnresolvableAddressFailsOnFirstPoll(t *testing.T) {
	result := kestrel.BlockOn(kestrel.NewScheduler(), tcp.Dial("not-a-valid-host:not-a-port"))

	require.Error(t, result.Err)
	require.Nil(t, result.Stream)
}
