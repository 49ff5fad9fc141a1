// Package snmp implements the GENERIC_SNMP backend on IF-MIB, EtherLike-MIB
// and POWER-ETHERNET-MIB. The port number is used as the ifIndex.
package snmp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/nanoncore/nano-usi/metrics"
	"github.com/nanoncore/nano-usi/types"
	"github.com/nanoncore/nano-usi/vendors/common"
	"go.uber.org/zap"
)

// Column OIDs, indexed by ifIndex or by PSE group and port
const (
	OIDIfAdminStatus        = "1.3.6.1.2.1.2.2.1.7"
	OIDIfOperStatus         = "1.3.6.1.2.1.2.2.1.8"
	OIDIfHighSpeed          = "1.3.6.1.2.1.31.1.1.1.15"
	OIDDot3StatsDuplex      = "1.3.6.1.2.1.10.7.2.1.19"
	OIDPethPortAdminEnable  = "1.3.6.1.2.1.105.1.1.1.3"
	OIDPethPortDetection    = "1.3.6.1.2.1.105.1.1.1.6"
	OIDPethPortPowerClasses = "1.3.6.1.2.1.105.1.1.1.10"
)

const (
	ifStatusUp   = 1
	ifStatusDown = 2

	duplexHalf = 2
	duplexFull = 3

	truthValueTrue  = 1
	truthValueFalse = 2

	defaultCommunity = "public"
	defaultTimeout   = 5 * time.Second
	defaultRetries   = 3
	defaultPoEGroup  = 1
)

// detectionStates maps pethPsePortDetectionStatus
var detectionStates = map[int64]types.PoEState{
	1: types.PoEOff,   // disabled
	2: types.PoEOff,   // searching
	3: types.PoEOn,    // deliveringPower
	4: types.PoEFault, // fault
	6: types.PoEFault, // otherFault
}

// classMaxPowerMw maps pethPsePortPowerClassifications (class0..class4)
var classMaxPowerMw = map[int64]float64{
	1: 15400,
	2: 4000,
	3: 7000,
	4: 15400,
	5: 30000,
}

// Client is the subset of *gosnmp.GoSNMP the switch uses
type Client interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error)
}

// Config holds configuration for a Switch
type Config struct {
	Descriptor types.SwitchDescriptor

	// Version is "1", "2c" (default) or "3"
	Version string
	Timeout time.Duration
	Retries int

	// PoEGroup is the pethPsePortGroupIndex of the front panel ports
	PoEGroup int

	// Client overrides the gosnmp client built from the descriptor
	Client Client

	Logger *zap.Logger
}

// Switch queries a switch over SNMP. gosnmp clients are not safe for
// concurrent use, so requests are serialized.
type Switch struct {
	cfg Config
	log *zap.Logger

	mu     sync.Mutex
	client Client
	conn   *gosnmp.GoSNMP
}

// NewSwitch creates an SNMP controller. The UDP socket is opened on first use.
func NewSwitch(cfg Config) (*Switch, error) {
	desc := cfg.Descriptor.WithDefaults()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	cfg.Descriptor = desc

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.PoEGroup == 0 {
		cfg.PoEGroup = defaultPoEGroup
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Switch{
		cfg:    cfg,
		client: cfg.Client,
		log: cfg.Logger.With(
			zap.String("switch", desc.String()),
			zap.String("model", string(desc.Model)),
		),
	}, nil
}

// connect builds and opens the gosnmp client. Called with mu held.
func (s *Switch) connect() (Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	desc := s.cfg.Descriptor
	version := gosnmp.Version2c
	switch s.cfg.Version {
	case "1":
		version = gosnmp.Version1
	case "3":
		version = gosnmp.Version3
	}

	community := desc.Password
	if community == "" {
		community = defaultCommunity
	}

	client := &gosnmp.GoSNMP{
		Target:    desc.IPAddr,
		Port:      uint16(desc.Port), //nolint:gosec // validated by the descriptor
		Community: community,
		Version:   version,
		Timeout:   s.cfg.Timeout,
		Retries:   s.cfg.Retries,
	}

	if version == gosnmp.Version3 {
		client.SecurityModel = gosnmp.UserSecurityModel
		client.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 desc.Username,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: desc.Password,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        desc.Password,
		}
		client.MsgFlags = gosnmp.AuthPriv
	}

	if err := client.Connect(); err != nil {
		return nil, types.NewError(types.CodeConnection, "connect", "failed to open SNMP socket", err)
	}
	s.conn = client
	s.client = client
	return client, nil
}

// get fetches oids and returns the decoded values keyed by OID
func (s *Switch) get(ctx context.Context, op string, oids []string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	result, err := client.Get(oids)
	if err != nil {
		return nil, types.NewError(types.CodeConnection, op, "SNMP GET failed", err)
	}
	if result.Error != gosnmp.NoError {
		return nil, types.NewError(types.CodeResponseParse, op,
			fmt.Sprintf("SNMP GET returned %s", result.Error), nil)
	}
	return common.PDUValues(result.Variables), nil
}

// GetInterface reads ifOperStatus, ifHighSpeed and dot3StatsDuplexStatus
func (s *Switch) GetInterface(ctx context.Context, port int) (*types.InterfaceStatus, error) {
	const op = "get interface"
	if err := validatePort(op, port); err != nil {
		return nil, err
	}

	start := time.Now()
	operOID := common.IndexedOID(OIDIfOperStatus, port)
	speedOID := common.IndexedOID(OIDIfHighSpeed, port)
	duplexOID := common.IndexedOID(OIDDot3StatsDuplex, port)

	results, err := s.get(ctx, op, []string{operOID, speedOID, duplexOID})
	s.observe("get_interface", start, err)
	if err != nil {
		return nil, err
	}

	raw, ok := common.GetSNMPResult(results, operOID)
	if !ok {
		return nil, types.NewError(types.CodeResponseParse, op,
			fmt.Sprintf("no ifOperStatus for ifIndex %d", port), nil)
	}
	oper, _ := common.ParseIntSNMPValue(raw)

	status := &types.InterfaceStatus{LinkState: types.LinkDown}
	if oper == ifStatusUp {
		status.LinkState = types.LinkUp
	}
	if v, ok := common.GetSNMPResult(results, speedOID); ok {
		if speed, ok := common.ParseIntSNMPValue(v); ok {
			status.SpeedMbps = int(speed)
		}
	}
	if v, ok := common.GetSNMPResult(results, duplexOID); ok {
		switch d, _ := common.ParseIntSNMPValue(v); d {
		case duplexHalf:
			status.Duplex = "half"
		case duplexFull:
			status.Duplex = "full"
		}
	}
	return status, nil
}

// GetPower reads the pethPsePortTable row of the port. The MIB carries no
// per-port consumption, so CurrentPowerMw is always 0.
func (s *Switch) GetPower(ctx context.Context, port int) (*types.PowerStatus, error) {
	const op = "get power"
	if err := validatePort(op, port); err != nil {
		return nil, err
	}

	start := time.Now()
	adminOID := common.IndexedOID(OIDPethPortAdminEnable, s.cfg.PoEGroup, port)
	detectOID := common.IndexedOID(OIDPethPortDetection, s.cfg.PoEGroup, port)
	classOID := common.IndexedOID(OIDPethPortPowerClasses, s.cfg.PoEGroup, port)

	results, err := s.get(ctx, op, []string{adminOID, detectOID, classOID})
	s.observe("get_power", start, err)
	if err != nil {
		return nil, err
	}

	status := &types.PowerStatus{
		PoEState:       types.PoEUnknown,
		PoESupport:     types.PoESupportUnknown,
		PoENegotiation: types.PoENegotiationUnknown,
	}

	var missing []string
	if v, ok := common.GetSNMPResult(results, adminOID); ok {
		switch admin, _ := common.ParseIntSNMPValue(v); admin {
		case truthValueTrue:
			status.PoESupport = types.PoESupportEnabled
		case truthValueFalse:
			status.PoESupport = types.PoESupportDisabled
		}
	} else {
		missing = append(missing, "pethPsePortAdminEnable")
	}
	if v, ok := common.GetSNMPResult(results, detectOID); ok {
		detection, _ := common.ParseIntSNMPValue(v)
		if state, ok := detectionStates[detection]; ok {
			status.PoEState = state
		}
	} else {
		missing = append(missing, "pethPsePortDetectionStatus")
	}
	if v, ok := common.GetSNMPResult(results, classOID); ok {
		class, _ := common.ParseIntSNMPValue(v)
		status.MaxPowerMw = classMaxPowerMw[class]
	}

	if len(missing) > 0 {
		metrics.ParseErrors.WithLabelValues(string(types.ModelGenericSNMP), "power").Inc()
		s.log.Warn("incomplete PoE status", zap.Int("port", port), zap.Strings("missing", missing))
	}
	return status, nil
}

// Connect sets ifAdminStatus up
func (s *Switch) Connect(ctx context.Context, port int) (*types.ActionResult, error) {
	return s.setAdminStatus(ctx, "connect", port, ifStatusUp)
}

// Disconnect sets ifAdminStatus down
func (s *Switch) Disconnect(ctx context.Context, port int) (*types.ActionResult, error) {
	return s.setAdminStatus(ctx, "disconnect", port, ifStatusDown)
}

func (s *Switch) setAdminStatus(ctx context.Context, op string, port, value int) (*types.ActionResult, error) {
	if err := validatePort(op, port); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now()
	result, err := s.set(op, gosnmp.SnmpPDU{
		Name:  common.IndexedOID(OIDIfAdminStatus, port),
		Type:  gosnmp.Integer,
		Value: value,
	})
	s.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Switch) set(op string, pdu gosnmp.SnmpPDU) (*types.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	result, err := client.Set([]gosnmp.SnmpPDU{pdu})
	if err != nil {
		return nil, types.NewError(types.CodeConnection, op, "SNMP SET failed", err)
	}
	if result.Error != gosnmp.NoError {
		s.log.Warn("SNMP SET rejected", zap.String("oid", pdu.Name), zap.String("error", result.Error.String()))
		return &types.ActionResult{Success: false}, nil
	}
	return &types.ActionResult{Success: true}, nil
}

// Close closes the UDP socket if one was opened
func (s *Switch) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.conn.Conn != nil {
		err := s.conn.Conn.Close()
		s.conn = nil
		s.client = nil
		return err
	}
	return nil
}

func (s *Switch) observe(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(types.CodeOf(err)))
	}
	metrics.CommandDuration.WithLabelValues(string(types.ModelGenericSNMP), operation, outcome).
		Observe(time.Since(start).Seconds())
}

func validatePort(op string, port int) error {
	if port < 1 {
		return types.NewError(types.CodeInvalidInput, op, fmt.Sprintf("ifIndex %d out of range", port), nil)
	}
	return nil
}

// Ensure Switch implements required interfaces
var _ types.Controller = (*Switch)(nil)
var _ Client = (*gosnmp.GoSNMP)(nil)
