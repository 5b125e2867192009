package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/viant/khub"
	"github.com/viant/khub/api"
	"github.com/viant/khub/settings"
	"github.com/viant/khub/stream"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Run parses args and executes the selected command
func Run(args []string) error {
	return RunWithOutput(context.Background(), args, os.Stdout)
}

// RunWithOutput runs the command line writing results to out
func RunWithOutput(ctx context.Context, args []string, out io.Writer) error {
	options := &Options{}
	parser := flags.NewParser(options, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(out, flagsErr.Message)
			return nil
		}
		return err
	}
	logger, err := newLogger(options.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	clientOptions, err := options.clientOptions(ctx)
	if err != nil {
		return err
	}
	clientOptions.Logger = logger
	clientOptions.OnSessionExpired = func(ctx context.Context, reason error) {
		_, _ = fmt.Fprintln(out, "session expired, please login again")
	}
	client, err := khub.NewClient(ctx, clientOptions)
	if err != nil {
		return err
	}
	runner := &Runner{client: client, out: out, logger: logger}
	return runner.Run(ctx, parser.Active, options)
}

// clientOptions merges the YAML document with explicit flags; flags win
func (o *Options) clientOptions(ctx context.Context) (*khub.ClientOptions, error) {
	ret := o.ClientOptions
	if o.Config == "" {
		return &ret, nil
	}
	loaded, err := khub.LoadOptions(ctx, o.Config)
	if err != nil {
		return nil, err
	}
	if ret.BaseURL == "" {
		ret.BaseURL = loaded.BaseURL
	}
	if ret.TokenStoreURL == "" {
		ret.TokenStoreURL = loaded.TokenStoreURL
	}
	if ret.TimeoutSeconds == 0 {
		ret.TimeoutSeconds = loaded.TimeoutSeconds
	}
	if ret.RefreshTimeoutSeconds == 0 {
		ret.RefreshTimeoutSeconds = loaded.RefreshTimeoutSeconds
	}
	return &ret, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Runner executes parsed commands against a client
type Runner struct {
	client *khub.Client
	out    io.Writer
	logger *zap.Logger
}

func (r *Runner) Run(ctx context.Context, command *flags.Command, options *Options) error {
	if command == nil {
		return fmt.Errorf("command was empty")
	}
	path := command.Name
	for active := command.Active; active != nil; active = active.Active {
		path += " " + active.Name
	}
	switch path {
	case "login":
		return r.login(ctx, &options.Login)
	case "logout":
		return r.client.Logout(ctx, "")
	case "settings get":
		return r.showSettings(ctx)
	case "settings set":
		return r.updateSettings(ctx, options.Settings.Set.Args.Pairs)
	case "chat new":
		cmd := options.Chat.New
		conv, err := r.client.CreateConversation(ctx, &api.ConversationInput{Title: cmd.Title, Model: cmd.Model, KBIDs: cmd.KBIDs})
		if err != nil {
			return err
		}
		return r.print(conv)
	case "chat list":
		conversations, err := r.client.ListConversations(ctx, options.Chat.List.Limit, options.Chat.List.Offset)
		if err != nil {
			return err
		}
		return r.print(conversations)
	case "chat history":
		cmd := options.Chat.History
		messages, err := r.client.ListMessages(ctx, cmd.Args.ConversationID, cmd.Limit, cmd.Before)
		if err != nil {
			return err
		}
		return r.print(messages)
	case "chat send":
		return r.send(ctx, &options.Chat.Send)
	}
	return fmt.Errorf("unsupported command: %v", path)
}

func (r *Runner) login(ctx context.Context, cmd *LoginCommand) error {
	if _, err := r.client.Login(ctx, cmd.Identifier, cmd.Password); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.out, "logged in as %v\n", cmd.Identifier)
	return err
}

func (r *Runner) showSettings(ctx context.Context) error {
	current, err := r.client.Settings.Load(ctx)
	if err != nil {
		return err
	}
	return r.print(current)
}

func (r *Runner) updateSettings(ctx context.Context, pairs []string) error {
	patch, err := parsePairs(pairs)
	if err != nil {
		return err
	}
	updated, err := r.client.Settings.Update(ctx, patch)
	if errors.Is(err, settings.ErrVersionConflict) {
		_, _ = fmt.Fprintln(r.out, "settings changed elsewhere and were reloaded; review and retry")
		if updated != nil {
			_ = r.print(updated)
		}
		return err
	}
	if err != nil {
		return err
	}
	return r.print(updated)
}

func (r *Runner) send(ctx context.Context, cmd *ChatSendCommand) error {
	input := &api.MessageInput{Content: strings.Join(cmd.Args.Content, " "), Model: cmd.Model}
	if !cmd.Stream {
		reply, err := r.client.SendMessage(ctx, cmd.Args.ConversationID, input)
		if err != nil {
			return err
		}
		if reply.AssistantMessage == nil {
			return nil
		}
		_, err = fmt.Fprintln(r.out, reply.AssistantMessage.Content)
		return err
	}
	return r.client.SendMessageStream(ctx, cmd.Args.ConversationID, input, func(delta stream.Delta) {
		if delta.Done {
			_, _ = fmt.Fprintln(r.out)
			return
		}
		_, _ = fmt.Fprint(r.out, delta.Text)
	})
}

func (r *Runner) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

// parsePairs decodes key=value arguments; values use YAML scalars so true, 0.7 and null keep their type
func parsePairs(pairs []string) (map[string]any, error) {
	ret := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q, expected key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value for %v: %w", key, err)
		}
		ret[key] = value
	}
	return ret, nil
}
