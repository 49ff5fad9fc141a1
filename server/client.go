package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a remote USI service
type Client struct {
	conn *grpc.ClientConn
}

// NewClient connects to a USI service at target. Without options the
// connection is insecure.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Conn returns the underlying connection
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in *SwitchInput, out interface{}) error {
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

// GetPower retrieves the PoE status of a port
func (c *Client) GetPower(ctx context.Context, in *SwitchInput) (*Power, error) {
	out := new(Power)
	if err := c.invoke(ctx, "GetPower", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInterface retrieves the link status of a port
func (c *Client) GetInterface(ctx context.Context, in *SwitchInput) (*Interface, error) {
	out := new(Interface)
	if err := c.invoke(ctx, "GetInterface", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Connect enables a port
func (c *Client) Connect(ctx context.Context, in *SwitchInput) (*SwitchActionResponse, error) {
	out := new(SwitchActionResponse)
	if err := c.invoke(ctx, "Connect", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Disconnect disables a port
func (c *Client) Disconnect(ctx context.Context, in *SwitchInput) (*SwitchActionResponse, error) {
	out := new(SwitchActionResponse)
	if err := c.invoke(ctx, "Disconnect", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
