package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

func (a *App) Main() {

	fmt.Println("GophAuth CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("gophauth %s > ", a.showLogin())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: me, refresh, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}

		case "register":
			a.Register()
		case "login":
			a.Login()
		case "me":
			a.Me()
		case "refresh":
			a.Refresh()
		case "logout":
			a.Logout()
		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
