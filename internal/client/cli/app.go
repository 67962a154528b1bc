// Package cli is an interactive console for the auth server.
package cli

import (
	"bufio"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/client/api"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

type App struct {
	config       *config.Config
	client       *api.Client
	userName     string
	refreshToken string
	reader       *bufio.Reader
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: api.New(c.ServerEndpointAddr),
		reader: bufio.NewReader(os.Stdin),
	}
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}

func (a *App) showLogin() string {
	if a.userName == "" {
		return "(anonymous)"
	}
	return a.userName
}

func (a *App) Run() {
	a.Main()
}
