package transport

import (
	"bufio"
	"net"
	"sync"

	"github.com/sevenDatabase/sevenbench/internal/logging"
)

// InboxSize is the buffering between the reader goroutine and the scheduler
// loop. Responses beyond this simply wait in the kernel buffer.
const InboxSize = 100

// Client is a connection to the key-value service. Send is fire-and-forget;
// everything the service pushes back arrives on Inbox. The inbox channel is
// closed when the connection goes away, whether by Close or by a peer reset.
type Client struct {
	conn  net.Conn
	w     *bufio.Writer
	wmu   sync.Mutex
	inbox chan Envelope
	once  sync.Once
}

// Dial connects to the service and starts the reader goroutine.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:  conn,
		w:     bufio.NewWriter(conn),
		inbox: make(chan Envelope, InboxSize),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.inbox)
	r := bufio.NewReader(c.conn)
	for {
		env, err := ReadEnvelope(r)
		if err != nil {
			logging.VDebug("net", "reader stopped", "err", err)
			return
		}
		logging.VDebug("net", "received", "kind", env.Kind, "id", env.ID)
		c.inbox <- *env
	}
}

// Send writes one envelope. It never waits for a response.
func (c *Client) Send(env Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	logging.VDebug("net", "sending", "kind", env.Kind, "id", env.ID)
	if err := WriteEnvelope(c.w, &env); err != nil {
		return err
	}
	return c.w.Flush()
}

// Inbox returns the stream of service messages.
func (c *Client) Inbox() <-chan Envelope { return c.inbox }

// Close tears the connection down; the reader goroutine then closes the
// inbox. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() { err = c.conn.Close() })
	return err
}
