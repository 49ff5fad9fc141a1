package snmp

import (
	"context"
	"errors"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/nanoncore/nano-usi/types"
)

// fakeClient answers GETs from a fixed OID table and records SETs
type fakeClient struct {
	values  map[string]gosnmp.SnmpPDU
	sets    []gosnmp.SnmpPDU
	setErr  gosnmp.SNMPError
	failErr error
}

func (f *fakeClient) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	packet := &gosnmp.SnmpPacket{}
	for _, oid := range oids {
		pdu, ok := f.values[oid]
		if !ok {
			pdu = gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.NoSuchInstance}
		}
		packet.Variables = append(packet.Variables, pdu)
	}
	return packet, nil
}

func (f *fakeClient) Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.sets = append(f.sets, pdus...)
	return &gosnmp.SnmpPacket{Error: f.setErr, Variables: pdus}, nil
}

func integer(oid string, v int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.Integer, Value: v}
}

func gauge(oid string, v uint) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.Gauge32, Value: v}
}

func newTestSwitch(t *testing.T, client *fakeClient) *Switch {
	t.Helper()
	s, err := NewSwitch(Config{
		Descriptor: types.SwitchDescriptor{Model: types.ModelGenericSNMP, IPAddr: "192.0.2.10", Password: "private"},
		Client:     client,
	})
	if err != nil {
		t.Fatalf("NewSwitch() error = %v", err)
	}
	return s
}

func TestGetInterface(t *testing.T) {
	tests := []struct {
		name   string
		values []gosnmp.SnmpPDU
		want   types.InterfaceStatus
	}{
		{
			name: "up full gigabit",
			values: []gosnmp.SnmpPDU{
				integer("1.3.6.1.2.1.2.2.1.8.3", 1),
				gauge("1.3.6.1.2.1.31.1.1.1.15.3", 1000),
				integer("1.3.6.1.2.1.10.7.2.1.19.3", 3),
			},
			want: types.InterfaceStatus{LinkState: types.LinkUp, Duplex: "full", SpeedMbps: 1000},
		},
		{
			name: "down",
			values: []gosnmp.SnmpPDU{
				integer("1.3.6.1.2.1.2.2.1.8.3", 2),
				gauge("1.3.6.1.2.1.31.1.1.1.15.3", 0),
				integer("1.3.6.1.2.1.10.7.2.1.19.3", 1),
			},
			want: types.InterfaceStatus{LinkState: types.LinkDown},
		},
		{
			name: "half duplex without EtherLike speed",
			values: []gosnmp.SnmpPDU{
				integer("1.3.6.1.2.1.2.2.1.8.3", 1),
				integer("1.3.6.1.2.1.10.7.2.1.19.3", 2),
			},
			want: types.InterfaceStatus{LinkState: types.LinkUp, Duplex: "half"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{values: map[string]gosnmp.SnmpPDU{}}
			for _, pdu := range tt.values {
				client.values[pdu.Name[1:]] = pdu
			}
			s := newTestSwitch(t, client)

			got, err := s.GetInterface(context.Background(), 3)
			if err != nil {
				t.Fatalf("GetInterface() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("GetInterface() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestGetInterfaceUnknownIndex(t *testing.T) {
	s := newTestSwitch(t, &fakeClient{values: map[string]gosnmp.SnmpPDU{}})

	_, err := s.GetInterface(context.Background(), 99)
	if !errors.Is(err, types.ErrResponseParse) {
		t.Errorf("GetInterface() error = %v, want ResponseParse", err)
	}
}

func TestGetPower(t *testing.T) {
	tests := []struct {
		name   string
		values []gosnmp.SnmpPDU
		want   types.PowerStatus
	}{
		{
			name: "delivering class 4",
			values: []gosnmp.SnmpPDU{
				integer("1.3.6.1.2.1.105.1.1.1.3.1.7", 1),
				integer("1.3.6.1.2.1.105.1.1.1.6.1.7", 3),
				integer("1.3.6.1.2.1.105.1.1.1.10.1.7", 5),
			},
			want: types.PowerStatus{
				PoEState:       types.PoEOn,
				PoESupport:     types.PoESupportEnabled,
				PoENegotiation: types.PoENegotiationUnknown,
				MaxPowerMw:     30000,
			},
		},
		{
			name: "admin disabled",
			values: []gosnmp.SnmpPDU{
				integer("1.3.6.1.2.1.105.1.1.1.3.1.7", 2),
				integer("1.3.6.1.2.1.105.1.1.1.6.1.7", 1),
			},
			want: types.PowerStatus{
				PoEState:       types.PoEOff,
				PoESupport:     types.PoESupportDisabled,
				PoENegotiation: types.PoENegotiationUnknown,
			},
		},
		{
			name: "other fault",
			values: []gosnmp.SnmpPDU{
				integer("1.3.6.1.2.1.105.1.1.1.3.1.7", 1),
				integer("1.3.6.1.2.1.105.1.1.1.6.1.7", 6),
			},
			want: types.PowerStatus{
				PoEState:       types.PoEFault,
				PoESupport:     types.PoESupportEnabled,
				PoENegotiation: types.PoENegotiationUnknown,
			},
		},
		{
			name:   "no PSE row",
			values: nil,
			want: types.PowerStatus{
				PoEState:       types.PoEUnknown,
				PoESupport:     types.PoESupportUnknown,
				PoENegotiation: types.PoENegotiationUnknown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{values: map[string]gosnmp.SnmpPDU{}}
			for _, pdu := range tt.values {
				client.values[pdu.Name[1:]] = pdu
			}
			s := newTestSwitch(t, client)

			got, err := s.GetPower(context.Background(), 7)
			if err != nil {
				t.Fatalf("GetPower() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("GetPower() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestSetAdminStatus(t *testing.T) {
	client := &fakeClient{}
	s := newTestSwitch(t, client)

	result, err := s.Disconnect(context.Background(), 4)
	if err != nil || !result.Success {
		t.Fatalf("Disconnect() = %v, %v", result, err)
	}
	result, err = s.Connect(context.Background(), 4)
	if err != nil || !result.Success {
		t.Fatalf("Connect() = %v, %v", result, err)
	}

	if len(client.sets) != 2 {
		t.Fatalf("sent %d SETs, want 2", len(client.sets))
	}
	for i, want := range []int{2, 1} {
		pdu := client.sets[i]
		if pdu.Name != "1.3.6.1.2.1.2.2.1.7.4" || pdu.Type != gosnmp.Integer || pdu.Value != want {
			t.Errorf("SET %d = %+v, want ifAdminStatus.4 = %d", i, pdu, want)
		}
	}
}

func TestSetRejected(t *testing.T) {
	s := newTestSwitch(t, &fakeClient{setErr: gosnmp.NoAccess})

	result, err := s.Connect(context.Background(), 1)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result.Success {
		t.Error("Success = true, want false for a rejected SET")
	}
}

func TestUnreachable(t *testing.T) {
	s := newTestSwitch(t, &fakeClient{failErr: errors.New("request timeout (after 3 retries)")})

	if _, err := s.GetPower(context.Background(), 1); !errors.Is(err, types.ErrConnection) {
		t.Errorf("GetPower() error = %v, want Connection", err)
	}
	if _, err := s.Disconnect(context.Background(), 1); !errors.Is(err, types.ErrConnection) {
		t.Errorf("Disconnect() error = %v, want Connection", err)
	}
}

func TestInvalidPort(t *testing.T) {
	s := newTestSwitch(t, &fakeClient{})

	if _, err := s.GetInterface(context.Background(), 0); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("GetInterface() error = %v, want InvalidInput", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := newTestSwitch(t, &fakeClient{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.GetInterface(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("GetInterface() error = %v, want context.Canceled", err)
	}
}
