package transport

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	val := "v"
	envs := []Envelope{
		{Kind: KindStart, StartMs: 1234567},
		{Kind: KindAppend, ID: 3, Cmd: &Command{Do: OpPut, Key: "k", Value: "v"}},
		{Kind: KindAppend, ID: 4, Cmd: &Command{Do: OpGet, Key: "k"}},
		{Kind: KindResp, ID: 4, Status: "ok", Value: &val},
		{Kind: KindResp, ID: 3, Status: "ok"},
	}
	var buf bytes.Buffer
	for i := range envs {
		if err := WriteEnvelope(&buf, &envs[i]); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for i := range envs {
		got, err := ReadEnvelope(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got.Kind != envs[i].Kind || got.ID != envs[i].ID || got.StartMs != envs[i].StartMs {
			t.Fatalf("frame %d mismatch: got %+v want %+v", i, got, envs[i])
		}
	}
	// Read hit on frame 3 must keep its value; write ack on frame 4 must not.
	buf.Reset()
	_ = WriteEnvelope(&buf, &envs[3])
	got, _ := ReadEnvelope(&buf)
	if got.Value == nil || *got.Value != "v" {
		t.Fatal("read response lost its value")
	}
}

func TestReadEnvelopeRejectsOversizedFrame(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadEnvelope(buf); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}

func TestClientSendAndInbox(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// Echo server: answers every append with a resp of the same id.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			env, err := ReadEnvelope(conn)
			if err != nil {
				return
			}
			if env.Kind != KindAppend {
				continue
			}
			_ = WriteEnvelope(conn, &Envelope{Kind: KindResp, ID: env.ID, Status: "ok"})
		}
	}()

	c, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	for i := uint64(0); i < 5; i++ {
		if err := c.Send(Envelope{Kind: KindAppend, ID: i, Cmd: &Command{Do: OpGet, Key: "k"}}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for i := uint64(0); i < 5; i++ {
		select {
		case env, ok := <-c.Inbox():
			if !ok {
				t.Fatal("inbox closed early")
			}
			if env.Kind != KindResp || env.ID != i {
				t.Fatalf("unexpected envelope %+v", env)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for response")
		}
	}
}

func TestCloseClosesInbox(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, _ := ln.Accept()
		if conn != nil {
			defer conn.Close()
			// Hold the connection open until the client closes it.
			buf := make([]byte, 1)
			_, _ = conn.Read(buf)
		}
	}()

	c, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case _, ok := <-c.Inbox():
		if ok {
			t.Fatal("expected closed inbox, got a message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbox not closed after Close")
	}
}
