package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

func (a *App) Register() {

	userName, err := GetSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	user, err := a.client.Register(context.Background(), userName, email, password)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	fmt.Printf("Registered %s. You can login now.\n", user.Username)
}

func (a *App) Login() {

	userName, err := GetSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(context.Background(), userName, password); err != nil {
		fmt.Println(err.Error())
		return
	}

	a.userName = userName

	// keep a refresh token around so the session can outlive the access token
	refresh, err := a.client.IssueRefreshToken(context.Background())
	if err != nil {
		fmt.Println("warning: no refresh token:", err.Error())
	} else {
		a.refreshToken = refresh
	}

	fmt.Println("Success!")
}

func (a *App) Me() {

	user, err := a.client.Me(context.Background())
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	fmt.Printf("username: %s\nemail: %s\ncreated: %s\n", user.Username, user.Email, user.CreatedAt)
}

func (a *App) Refresh() {

	if a.refreshToken == "" {
		fmt.Println("No refresh token. Login first.")
		return
	}

	if err := a.client.Refresh(context.Background(), a.refreshToken); err != nil {
		fmt.Println(err.Error())
		return
	}

	fmt.Println("Access token renewed.")
}

func (a *App) Logout() {
	a.client.Logout()
	a.userName = ""
	a.refreshToken = ""
	fmt.Println("Logged out.")
}
