package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nanoncore/nano-usi/buildinfo"
	"github.com/nanoncore/nano-usi/server"
	"github.com/nanoncore/nano-usi/types"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	a        = kingpin.New("usictl", "query and toggle switch ports through a usid instance")
	addr     = a.Flag("addr", "usid gRPC address").Default("localhost:5000").Envar("USI_ADDR").String()
	timeout  = a.Flag("timeout", "request timeout").Default("90s").Envar("USI_TIMEOUT").Duration()
	model    = a.Flag("model", "switch model").PlaceHolder("[ALLIED_TELESIS_X230|CISCO_9300|GENERIC_SNMP|OVS]").Default(string(types.ModelOVS)).Envar("USI_MODEL").String()
	ip       = a.Flag("ip", "switch management address").Default("").Envar("USI_SWITCH_IP").String()
	mgmtPort = a.Flag("mgmt-port", "switch management port, protocol default when 0").Default("0").Int()
	user     = a.Flag("user", "switch username").Default("").Envar("USI_SWITCH_USER").String()
	password = a.Flag("password", "switch password or SNMP community").Default("").Envar("USI_SWITCH_PASSWORD").String()
	protocol = a.Flag("protocol", "management protocol override").PlaceHolder("[telnet|ssh|snmp|local]").Default("").String()
	faux     = a.Flag("faux-interface", "interface toggled for the OVS model").Default("").String()

	powerCmd      = a.Command("power", "show the PoE status of a port")
	powerPort     = powerCmd.Arg("port", "device port").Required().Int32()
	interfaceCmd  = a.Command("interface", "show the link status of a port")
	interfacePort = interfaceCmd.Arg("port", "device port").Required().Int32()
	connectCmd    = a.Command("connect", "enable a port")
	connectPort   = connectCmd.Arg("port", "device port").Required().Int32()
	disconnectCmd = a.Command("disconnect", "disable a port")
	disconnPort   = disconnectCmd.Arg("port", "device port").Required().Int32()
)

func main() {
	a.HelpFlag.Short('h')
	a.Version(buildinfo.Info.String())

	cmd := kingpin.MustParse(a.Parse(os.Args[1:]))

	client, err := server.NewClient(*addr)
	if err != nil {
		kingpin.Fatalf("%s", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := call(ctx, client, cmd)
	if err != nil {
		kingpin.Fatalf("%s", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		kingpin.Fatalf("%s", err)
	}
}

func call(ctx context.Context, client *server.Client, cmd string) (interface{}, error) {
	switch cmd {
	case powerCmd.FullCommand():
		return client.GetPower(ctx, input(*powerPort))
	case interfaceCmd.FullCommand():
		return client.GetInterface(ctx, input(*interfacePort))
	case connectCmd.FullCommand():
		return client.Connect(ctx, input(*connectPort))
	case disconnectCmd.FullCommand():
		return client.Disconnect(ctx, input(*disconnPort))
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

func input(port int32) *server.SwitchInput {
	in := &server.SwitchInput{DevicePort: port, FauxInterface: *faux}

	m := types.Model(strings.ToUpper(*model))
	if m == types.ModelOVS && *ip == "" {
		return in
	}
	in.SwitchInfo = &types.SwitchDescriptor{
		Model:    m,
		IPAddr:   *ip,
		Port:     *mgmtPort,
		Username: *user,
		Password: *password,
		Protocol: types.Protocol(*protocol),
	}
	return in
}
