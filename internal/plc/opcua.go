package plc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	closeTimeout          = 5 * time.Second
)

// nodeIDPrefixes mark an address that is already a complete node ID.
var nodeIDPrefixes = []string{"ns=", "i=", "s=", "g=", "b=", "nsu="}

// OPCUA is a Conn backed by an OPC UA client session.
//
// All methods are safe for concurrent use; gopcua serialises requests on
// the secure channel.
type OPCUA struct {
	cfg config.PLCConfig

	// client is nil before Connect and after Close.
	mu     sync.RWMutex
	client *opcua.Client

	// nodes caches parsed node IDs by configured address. Addresses never
	// change at runtime, so entries are never evicted.
	nodesMu sync.RWMutex
	nodes   map[string]*ua.NodeID

	logger   Logger
	loggerMu sync.RWMutex

	reads       atomic.Uint64
	readErrors  atomic.Uint64
	writes      atomic.Uint64
	writeErrors atomic.Uint64
	lastRead    atomic.Int64
}

// NewOPCUA creates an unconnected OPC UA link.
func NewOPCUA(cfg config.PLCConfig) *OPCUA {
	return &OPCUA{
		cfg:   cfg,
		nodes: make(map[string]*ua.NodeID),
	}
}

// SetLogger sets the logger for this link.
func (o *OPCUA) SetLogger(logger Logger) {
	o.loggerMu.Lock()
	o.logger = logger
	o.loggerMu.Unlock()
}

// Connect opens the session. gopcua reconnects on its own afterwards.
func (o *OPCUA) Connect(ctx context.Context) error {
	client, err := opcua.NewClient(o.cfg.Endpoint, o.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	timeout := time.Duration(o.cfg.ConnectTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, o.cfg.Endpoint, err)
	}

	o.mu.Lock()
	old := o.client
	o.client = client
	o.mu.Unlock()

	if old != nil {
		_ = old.Close(ctx) //nolint:errcheck // replaced session
	}

	o.logInfo("connected to PLC", "endpoint", o.cfg.Endpoint, "security_mode", normalizeSecurityMode(o.cfg.SecurityMode))
	return nil
}

// clientOptions maps the configured security and credentials onto gopcua
// options. Anonymous login is used when no username is set.
func (o *OPCUA) clientOptions() []opcua.Option {
	appName := o.cfg.ApplicationName
	if appName == "" {
		appName = "Gray Logic HMI"
	}

	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(o.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(o.cfg.SecurityPolicy)),
		opcua.ApplicationName(appName),
		opcua.AutoReconnect(true),
	}
	if o.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(o.cfg.Username, o.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

// Close ends the session.
func (o *OPCUA) Close(ctx context.Context) error {
	o.mu.Lock()
	client := o.client
	o.client = nil
	o.mu.Unlock()

	if client == nil {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	if err := client.Close(closeCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing opcua session: %w", err)
	}
	return nil
}

// IsConnected reports whether the session is established.
func (o *OPCUA) IsConnected() bool {
	client := o.session()
	return client != nil && client.State() == opcua.Connected
}

// HealthCheck returns ErrNotConnected while the session is down.
func (o *OPCUA) HealthCheck(_ context.Context) error {
	if !o.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// session returns the current client, or nil while disconnected.
func (o *OPCUA) session() *opcua.Client {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.client
}

// ReadBatch reads every address in one request.
func (o *OPCUA) ReadBatch(ctx context.Context, addresses []string) ([]any, error) {
	values, err := o.readBatch(ctx, addresses)
	o.reads.Add(1)
	if err != nil {
		o.readErrors.Add(1)
		return nil, err
	}
	o.lastRead.Store(time.Now().UnixNano())
	return values, nil
}

// readBatch issues one Read request for every address. A bad status or an
// empty value on any node fails the batch with the address named.
func (o *OPCUA) readBatch(ctx context.Context, addresses []string) ([]any, error) {
	if len(addresses) == 0 {
		return nil, ErrEmptyBatch
	}
	client := o.session()
	if client == nil {
		return nil, ErrNotConnected
	}

	toRead := make([]*ua.ReadValueID, len(addresses))
	for i, addr := range addresses {
		id, err := o.nodeID(addr)
		if err != nil {
			return nil, err
		}
		toRead[i] = &ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue}
	}

	resp, err := client.Read(ctx, &ua.ReadRequest{
		NodesToRead:        toRead,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if len(resp.Results) != len(addresses) {
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrShapeMismatch, len(addresses), len(resp.Results))
	}

	values := make([]any, len(addresses))
	for i, res := range resp.Results {
		if res == nil || res.Status != ua.StatusOK {
			status := ua.StatusBad
			if res != nil {
				status = res.Status
			}
			return nil, fmt.Errorf("%w: %s: %s", ErrReadFailed, addresses[i], status)
		}
		if res.Value == nil {
			return nil, fmt.Errorf("%w: %s: empty value", ErrReadFailed, addresses[i])
		}
		values[i] = res.Value.Value()
	}
	return values, nil
}

// Write writes value to one address.
func (o *OPCUA) Write(ctx context.Context, address string, value any) error {
	err := o.write(ctx, address, value)
	o.writes.Add(1)
	if err != nil {
		o.writeErrors.Add(1)
		o.logError("plc write failed", "address", address, "error", err)
	}
	return err
}

// write sends a single-node WriteRequest; anything but StatusOK fails.
func (o *OPCUA) write(ctx context.Context, address string, value any) error {
	client := o.session()
	if client == nil {
		return ErrNotConnected
	}
	id, err := o.nodeID(address)
	if err != nil {
		return err
	}
	variant, err := ua.NewVariant(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, address, err)
	}

	resp, err := client.Write(ctx, &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{{
			NodeID:      id,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        variant,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, address, err)
	}
	if len(resp.Results) != 1 || resp.Results[0] != ua.StatusOK {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, address, resp.Results)
	}
	return nil
}

// nodeID resolves and caches the node ID for a configured address.
func (o *OPCUA) nodeID(address string) (*ua.NodeID, error) {
	o.nodesMu.RLock()
	id, ok := o.nodes[address]
	o.nodesMu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := ua.ParseNodeID(ResolveNodeID(o.cfg.NodePrefix, address))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}

	o.nodesMu.Lock()
	o.nodes[address] = id
	o.nodesMu.Unlock()
	return id, nil
}

// ResolveNodeID joins prefix and address unless address is already a node ID.
func ResolveNodeID(prefix, address string) string {
	for _, p := range nodeIDPrefixes {
		if strings.HasPrefix(address, p) {
			return address
		}
	}
	return prefix + address
}

// Stats returns link counters.
func (o *OPCUA) Stats() Stats {
	s := Stats{
		Connected:   o.IsConnected(),
		Reads:       o.reads.Load(),
		ReadErrors:  o.readErrors.Load(),
		Writes:      o.writes.Load(),
		WriteErrors: o.writeErrors.Load(),
	}
	if ns := o.lastRead.Load(); ns != 0 {
		s.LastRead = time.Unix(0, ns)
	}
	return s
}

// normalizeSecurityMode accepts the spellings operators use in config files
// and returns the gopcua name. Anything unknown means no security.
func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

func (o *OPCUA) logInfo(msg string, keysAndValues ...any) {
	o.loggerMu.RLock()
	logger := o.logger
	o.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (o *OPCUA) logError(msg string, keysAndValues ...any) {
	o.loggerMu.RLock()
	logger := o.logger
	o.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}
