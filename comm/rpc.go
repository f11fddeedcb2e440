package comm

import (
	"fmt"
	"net"
	"net/rpc"
)

// Collective is the RPC service the coordinator exposes to the worker
// processes. Barrier and Fetch calls block server side; net/rpc serves every
// call on its own goroutine so that is safe.
type Collective struct {
	state *groupState
}

type BarrierArgs struct {
	Rank int
}

type FetchArgs struct {
	Rank int
	Seq  int
}

type FetchReply struct {
	Payload []byte
}

type EmptyMsg struct{}

func (c *Collective) Barrier(args BarrierArgs, _ *EmptyMsg) error {
	c.state.await()
	return nil
}

func (c *Collective) Fetch(args FetchArgs, reply *FetchReply) error {
	reply.Payload = c.state.fetch(args.Seq)
	return nil
}

// Coordinator is the rank-0 context of a multi-process run. It serves the
// collective RPC endpoint for the workers and participates in barriers and
// broadcasts through the same shared state, in process.
type Coordinator struct {
	localContext
	listener net.Listener
}

// NewCoordinator starts the collective endpoint on addr (host:port, port 0
// picks a free one) for a group of the given size and returns the rank-0
// context. Close it when the run is over.
func NewCoordinator(addr string, size int) (*Coordinator, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	state := newGroupState(size)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %q: %v", addr, err)
	}
	server := rpc.NewServer()
	if err := server.Register(&Collective{state: state}); err != nil {
		listener.Close()
		return nil, err
	}
	go serve(server, listener)
	return &Coordinator{
		localContext: localContext{rank: 0, state: state},
		listener:     listener,
	}, nil
}

// Addr returns the address workers should dial.
func (c *Coordinator) Addr() string {
	return c.listener.Addr().String()
}

func (c *Coordinator) Close() error {
	return c.listener.Close()
}

func serve(server *rpc.Server, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		go server.ServeConn(conn)
	}
}

// remoteContext is a worker-side context talking to the coordinator.
type remoteContext struct {
	rank   int
	size   int
	client *rpc.Client
	seq    int
}

// Dial connects a worker rank to the coordinator's collective endpoint.
func Dial(addr string, size, rank int) (Context, error) {
	if rank < 1 || rank >= size {
		return nil, fmt.Errorf("worker rank must be in [1,%d), got %d", size, rank)
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to reach coordinator at %q: %v", addr, err)
	}
	return &remoteContext{rank: rank, size: size, client: rpc.NewClient(conn)}, nil
}

func (c *remoteContext) Rank() int           { return c.rank }
func (c *remoteContext) Size() int           { return c.size }
func (c *remoteContext) IsCoordinator() bool { return false }

func (c *remoteContext) Barrier() error {
	return c.client.Call("Collective.Barrier", BarrierArgs{Rank: c.rank}, &EmptyMsg{})
}

func (c *remoteContext) Broadcast(_ []byte) ([]byte, error) {
	var reply FetchReply
	err := c.client.Call("Collective.Fetch", FetchArgs{Rank: c.rank, Seq: c.seq}, &reply)
	if err != nil {
		return nil, err
	}
	c.seq++
	return reply.Payload, nil
}
