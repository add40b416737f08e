package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/wolfeidau/steeple/cmd/cli/internal/credentials"
	"github.com/wolfeidau/steeple/internal/client"
)

type Globals struct {
	Debug   bool
	Version string
}

// ServerFlags are shared by every command that talks to a server.
type ServerFlags struct {
	Server         string `help:"Server URL" default:"http://localhost:8080" env:"STEEPLE_SERVER"`
	CacheDir       string `help:"directory for cached responses, empty keeps them in memory" default:"" env:"STEEPLE_CACHE_DIR"`
	CredentialsDir string `help:"directory holding stored tokens" default:"" env:"STEEPLE_CREDENTIALS_DIR"`
	JSON           bool   `help:"print the raw response as JSON" default:"false"`
}

func (f *ServerFlags) clients(opts ...connect.ClientOption) *client.Clients {
	return client.NewClients(client.Config{
		ServerURL: f.Server,
		Timeout:   30 * time.Second,
		CacheDir:  f.CacheDir,
	}, opts...)
}

func (f *ServerFlags) authenticatedClients() (*client.Clients, error) {
	store, err := credentials.NewStore(f.CredentialsDir)
	if err != nil {
		return nil, err
	}
	interceptor, err := credentials.NewAuthInterceptor(store, f.Server)
	if err != nil {
		return nil, err
	}
	return f.clients(connect.WithInterceptors(interceptor)), nil
}

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printField(name string, value any) {
	fmt.Fprintf(stdout, "%-18s %v\n", name+":", value)
}
