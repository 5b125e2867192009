package cli

import "github.com/viant/khub"

type Options struct {
	khub.ClientOptions
	Config  string `short:"c" long:"config" description:"client options YAML URL"`
	Verbose bool   `short:"v" long:"verbose" description:"debug logging"`

	Login    LoginCommand    `command:"login" description:"sign in and store credentials"`
	Logout   LogoutCommand   `command:"logout" description:"revoke the refresh token and clear credentials"`
	Settings SettingsCommand `command:"settings" description:"show or change user settings"`
	Chat     ChatCommand     `command:"chat" description:"manage conversations"`
}

type LoginCommand struct {
	Identifier string `short:"i" long:"identifier" description:"username or email" required:"true"`
	Password   string `short:"p" long:"password" description:"password" required:"true"`
}

type LogoutCommand struct{}

type SettingsCommand struct {
	Get SettingsGetCommand `command:"get" description:"print settings"`
	Set SettingsSetCommand `command:"set" description:"update settings with key=value pairs"`
}

type SettingsGetCommand struct{}

type SettingsSetCommand struct {
	Args struct {
		Pairs []string `positional-arg-name:"key=value" required:"1"`
	} `positional-args:"yes"`
}

type ChatCommand struct {
	New     ChatNewCommand     `command:"new" description:"create a conversation"`
	List    ChatListCommand    `command:"list" description:"list conversations"`
	History ChatHistoryCommand `command:"history" description:"list conversation messages"`
	Send    ChatSendCommand    `command:"send" description:"send a message"`
}

type ChatNewCommand struct {
	Title string `short:"t" long:"title" description:"conversation title"`
	Model string `short:"m" long:"model" description:"model name"`
	KBIDs []int  `long:"kb" description:"knowledge base id"`
}

type ChatListCommand struct {
	Limit  int `short:"l" long:"limit" description:"page size"`
	Offset int `short:"o" long:"offset" description:"page offset"`
}

type ChatHistoryCommand struct {
	Limit  int `short:"l" long:"limit" description:"page size"`
	Before int `short:"b" long:"before" description:"only messages with a lower id"`
	Args   struct {
		ConversationID int `positional-arg-name:"conversation" required:"yes"`
	} `positional-args:"yes"`
}

type ChatSendCommand struct {
	Stream bool   `long:"stream" description:"stream the reply"`
	Model  string `short:"m" long:"model" description:"model name"`
	Args   struct {
		ConversationID int      `positional-arg-name:"conversation" required:"yes"`
		Content        []string `positional-arg-name:"content" required:"1"`
	} `positional-args:"yes"`
}
