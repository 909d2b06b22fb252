package wrap

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var dialMemcached = func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: 3 * time.Second}
	return d.DialContext(ctx, network, addr)
}

type memcachedStore struct {
	addrs  []string
	prefix string
	pools  map[string]chan *memcachedConn
	rr     uint32
}

type memcachedConn struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
}

func newMemcachedStore(addrs []string, prefix string) SlotStore {
	if len(addrs) == 0 {
		addrs = []string{"127.0.0.1:11211"}
	}
	if prefix == "" {
		prefix = defaultSlotPrefix
	}
	pools := make(map[string]chan *memcachedConn, len(addrs))
	for _, addr := range addrs {
		pools[addr] = make(chan *memcachedConn, 16)
	}
	return &memcachedStore{addrs: addrs, prefix: prefix, pools: pools}
}

func (s *memcachedStore) Driver() Driver { return DriverMemcached }

func (s *memcachedStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	mc, err := s.acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	bad := false
	defer func() { s.release(mc, bad) }()

	full := s.slotKey(key)
	if _, err := fmt.Fprintf(mc.conn, "get %s\r\n", full); err != nil {
		bad = true
		return nil, false, err
	}
	line, err := mc.reader.ReadString('\n')
	if err != nil {
		bad = true
		return nil, false, err
	}
	if line == "END\r\n" {
		return nil, false, nil
	}

	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 4 || fields[0] != "VALUE" {
		return nil, false, fmt.Errorf("unexpected response: %s", strings.TrimSpace(line))
	}
	bytesLen, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, false, fmt.Errorf("parse length: %w", err)
	}
	value := make([]byte, bytesLen)
	if _, err := io.ReadFull(mc.reader, value); err != nil {
		bad = true
		return nil, false, err
	}
	// consume trailing \r\n
	if _, err := mc.reader.ReadString('\n'); err != nil {
		bad = true
		return nil, false, err
	}
	// consume END
	if _, err := mc.reader.ReadString('\n'); err != nil {
		bad = true
		return nil, false, err
	}
	return value, true, nil
}

func (s *memcachedStore) Store(ctx context.Context, key string, value []byte) (bool, error) {
	mc, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	bad := false
	defer func() { s.release(mc, bad) }()

	// add stores only when the key is absent; exptime 0 keeps the slot
	// forever, which is the one-shot contract.
	full := s.slotKey(key)
	if _, err := fmt.Fprintf(mc.conn, "add %s 0 0 %d\r\n", full, len(value)); err != nil {
		bad = true
		return false, err
	}
	if _, err := mc.conn.Write(value); err != nil {
		bad = true
		return false, err
	}
	if _, err := mc.conn.Write([]byte("\r\n")); err != nil {
		bad = true
		return false, err
	}
	line, err := mc.reader.ReadString('\n')
	if err != nil {
		bad = true
		return false, err
	}
	switch {
	case strings.HasPrefix(line, "STORED"):
		return true, nil
	case strings.HasPrefix(line, "NOT_STORED"):
		return false, nil
	default:
		bad = true
		return false, fmt.Errorf("memcached add failed: %s", strings.TrimSpace(line))
	}
}

func (s *memcachedStore) Forget(ctx context.Context, key string) error {
	mc, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	bad := false
	defer func() { s.release(mc, bad) }()
	full := s.slotKey(key)
	if _, err := fmt.Fprintf(mc.conn, "delete %s\r\n", full); err != nil {
		bad = true
		return err
	}
	if _, err := mc.reader.ReadString('\n'); err != nil {
		bad = true
		return err
	}
	return nil
}

// Flush issues flush_all, which clears the whole server: the memcached
// protocol has no key enumeration, so prefix-scoped removal is not possible.
func (s *memcachedStore) Flush(ctx context.Context) error {
	mc, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	bad := false
	defer func() { s.release(mc, bad) }()
	if _, err := fmt.Fprintf(mc.conn, "flush_all\r\n"); err != nil {
		bad = true
		return err
	}
	line, err := mc.reader.ReadString('\n')
	if err != nil {
		bad = true
		return err
	}
	if !strings.HasPrefix(line, "OK") {
		bad = true
		return fmt.Errorf("memcached flush failed: %s", strings.TrimSpace(line))
	}
	return nil
}

func (s *memcachedStore) acquire(ctx context.Context) (*memcachedConn, error) {
	if len(s.addrs) == 0 {
		return nil, errors.New("memcached: no addresses configured")
	}
	var errs bytes.Buffer
	start := int(atomic.AddUint32(&s.rr, 1)-1) % len(s.addrs)
	for i := 0; i < len(s.addrs); i++ {
		addr := s.addrs[(start+i)%len(s.addrs)]
		if pool, ok := s.pools[addr]; ok {
			select {
			case mc := <-pool:
				if mc != nil {
					return mc, nil
				}
			default:
			}
		}
		conn, err := dialMemcached(ctx, "tcp", addr)
		if err == nil {
			return &memcachedConn{
				addr:   addr,
				conn:   conn,
				reader: bufio.NewReader(conn),
			}, nil
		}
		fmt.Fprintf(&errs, "%s: %v; ", addr, err)
	}
	return nil, fmt.Errorf("memcached dial failed: %s", errs.String())
}

func (s *memcachedStore) release(mc *memcachedConn, bad bool) {
	if mc == nil || mc.conn == nil {
		return
	}
	if bad {
		_ = mc.conn.Close()
		return
	}
	pool, ok := s.pools[mc.addr]
	if !ok {
		_ = mc.conn.Close()
		return
	}
	select {
	case pool <- mc:
	default:
		_ = mc.conn.Close()
	}
}

func (s *memcachedStore) slotKey(key string) string {
	full := key
	if s.prefix != "" {
		full = s.prefix + ":" + key
	}
	// memcached keys cannot contain whitespace or exceed 250 bytes.
	if len(full) > 250 || strings.ContainsAny(full, " \t\r\n") {
		sum := sha256.Sum256([]byte(full))
		return s.prefix + ":" + hex.EncodeToString(sum[:])
	}
	return full
}
